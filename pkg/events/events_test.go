package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/conductor/pkg/models"
)

func TestFromRequest_CarriesWireFields(t *testing.T) {
	now := time.Now().UTC()

	request := &models.Request{
		ID:                "req-1",
		RequestType:       "provisioning",
		ExternalKey:       "order-1",
		Source:            "billing",
		SourceReference:   "invoice-7",
		Status:            models.RequestStatusResolved,
		Payload:           map[string]any{"plan": "basic"},
		ResolutionPayload: map[string]any{"instance": "i-1"},
		UpdatedAt:         now,
		LastError:         "should not appear on the wire",
	}

	event := FromRequest(request)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var wire map[string]any

	require.NoError(t, json.Unmarshal(raw, &wire))

	assert.Len(t, wire, 9)
	assert.Equal(t, "req-1", wire["id"])
	assert.Equal(t, "resolved", wire["status"])
	assert.Equal(t, "provisioning", wire["request_type"])
	assert.Equal(t, "order-1", wire["external_key"])
	assert.Equal(t, "billing", wire["source"])
	assert.Equal(t, "invoice-7", wire["source_reference"])
	assert.NotContains(t, wire, "last_error")
	assert.NotContains(t, wire, "retry_at")
}

func TestDecode_RoundTrip(t *testing.T) {
	event := NotificationEvent{
		ID:          "req-2",
		Status:      models.RequestStatusInProgress,
		ExternalKey: "order-2",
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Status, decoded.Status)
}

func TestDecode_InvalidPayload(t *testing.T) {
	_, err := Decode([]byte("{truncated"))
	require.Error(t, err)
}
