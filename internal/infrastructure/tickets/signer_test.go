package tickets_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/entities"
	"reservations/internal/infrastructure/tickets"
)

func TestSigner(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	signer, err := tickets.NewSigner([]byte("secret"), func() time.Time { return now })
	require.NoError(t, err)

	booking := entities.Booking{ID: uuid.New(), EventID: uuid.New(), Seats: 3}

	token, err := signer.Issue(booking)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, booking.ID.String(), claims.Subject)
	assert.Equal(t, booking.EventID.String(), claims.EventID)
	assert.Equal(t, 3, claims.Seats)

	other, err := tickets.NewSigner([]byte("other"), func() time.Time { return now })
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.Error(t, err)

	_, err = signer.Verify(token + "x")
	assert.Error(t, err)
}

func TestNewSigner_requires_key(t *testing.T) {
	_, err := tickets.NewSigner(nil, nil)
	assert.Error(t, err)
}
