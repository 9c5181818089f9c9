package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "seats_reserved_total",
		Help:      "Seats committed to the ledger at hold creation.",
	})
	SeatsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "seats_released_total",
		Help:      "Seats given back to the ledger.",
	}, []string{"reason"})
	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "holds_expired_total",
	})
	OffersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "waitlist_offers_issued_total",
	})
	OffersClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "waitlist_offers_claimed_total",
	})
	OffersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "waitlist_offers_expired_total",
	})
	Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "refunds_total",
		Help:      "Refunds by final status.",
	}, []string{"status"})
	RiskDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservations",
		Name:      "risk_decisions_total",
	}, []string{"action"})
)
