package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	stackID := uuid.New()
	contributionID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventStackPublished,
		AggregateType: enums.AggregateStack,
		AggregateID:   stackID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.StackPublishedEvent{
			StackID:        stackID,
			ContributionID: contributionID,
			Name:           "Linear",
			Industry:       enums.IndustrySaaS,
			Scale:          enums.ScaleSeriesB,
		})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "domain-topic", resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.StackPublishedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, contributionID, payload.ContributionID)
	assert.Equal(t, "Linear", payload.Name)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestEventRegistryResolveNonRetryable(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("stack_deleted"),
			AggregateType: enums.AggregateStack,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventContributionReviewed,
			AggregateType: enums.AggregateStack,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"approved review without stack": {
			EventType:     enums.EventContributionReviewed,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Payload: mustEnvelope(t, mustMarshal(t, payloads.ContributionReviewedEvent{
				ContributionID: uuid.New(),
				Status:         enums.ContributionStatusApproved,
			})),
		},
		"pending is not a review": {
			EventType:     enums.EventContributionReviewed,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Payload: mustEnvelope(t, mustMarshal(t, payloads.ContributionReviewedEvent{
				ContributionID: uuid.New(),
				Status:         enums.ContributionStatusPending,
			})),
		},
		"broken envelope": {
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.ErrorAs(t, err, &nonRetry)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-topic"})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}
