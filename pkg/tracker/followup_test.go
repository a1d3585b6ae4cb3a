package tracker

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/conductor/pkg/events"
	"github.com/dukex/conductor/pkg/models"
)

func TestLogScheduler_RecordsResolvedRequest(t *testing.T) {
	var buf bytes.Buffer

	scheduler := NewLogScheduler(slog.New(slog.NewTextHandler(&buf, nil)))

	err := scheduler.Schedule(context.Background(), events.NotificationEvent{
		ID:          "req-1",
		Status:      models.RequestStatusResolved,
		ExternalKey: "order-9",
		RequestType: "provisioning",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "order-9")
}
