package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warranty/internal/warranty/models"
	"warranty/internal/warranty/store/storetest"
)

func newEvent(t *testing.T) models.Event {
	t.Helper()
	event, err := models.NewCertificateTransferredEvent(1, storetest.Seller, storetest.Other, time.Now())
	require.NoError(t, err)
	return event
}
