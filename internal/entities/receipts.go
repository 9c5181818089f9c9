package entities

import "time"

type IssueReceiptRequest struct {
	BookingID      string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type IssueReceiptResponse struct {
	ReceiptNumber string
	IssuedAt      time.Time
}

type AppendToTrackerRequest struct {
	SpreadsheetName string
	Rows            []string
}
