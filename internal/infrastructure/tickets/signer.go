package tickets

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reservations/internal/entities"
)

const issuer = "reservations"

type Claims struct {
	jwt.RegisteredClaims

	EventID string `json:"event_id"`
	Seats   int    `json:"seats"`
}

// Signer issues the ticket artifact handed out on confirmation: an HS256
// token naming the booking, its event and the number of seats.
type Signer struct {
	key []byte
	now func() time.Time
}

func NewSigner(key []byte, now func() time.Time) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("ticket signing key is empty")
	}
	if now == nil {
		now = time.Now
	}

	return &Signer{key: key, now: now}, nil
}

func (s *Signer) Issue(booking entities.Booking) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   booking.ID.String(),
			ID:        booking.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			NotBefore: jwt.NewNumericDate(s.now()),
		},
		EventID: booking.EventID.String(),
		Seats:   booking.Seats,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign ticket for booking %s: %w", booking.ID, err)
	}

	return token, nil
}

func (s *Signer) Verify(token string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("verify ticket: %w", err)
	}

	return claims, nil
}
