package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	aggregateID := uuid.New()
	actor := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			AggregateID:   aggregateID,
			Actor:         &ActorRef{UserID: actor, Role: "user"},
			Data:          map[string]string{"name": "Linear"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor, envelope.Actor.UserID)
	assert.JSONEq(t, `{"name":"Linear"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	boom := errors.New("status write failed")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventContributionReviewed,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	require.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     "bogus",
		AggregateType: enums.AggregateStack,
		AggregateID:   uuid.New(),
	}))
	require.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventStackPublished,
		AggregateType: enums.AggregateStack,
	}))
}

func TestEmitIfNotExists(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	event := DomainEvent{
		EventType:     enums.EventStackPublished,
		AggregateType: enums.AggregateStack,
		AggregateID:   uuid.New(),
		Data:          map[string]any{},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))
	}
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
		}
		require.NoError(t, repo.Insert(conn, row))
		ids[i] = row.ID
	}

	require.NoError(t, repo.MarkPublishedTx(conn, ids[0]))
	require.NoError(t, repo.MarkFailedTx(conn, ids[1], errors.New("unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, ids[2], errors.New("bad payload"), 5))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "unavailable", *rows[0].LastError)
}

func TestDLQRepository(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStackPublished,
		AggregateType: enums.AggregateStack,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  4,
	}

	long := errors.New(strings.Repeat("x", maxLastErrorLen+10))
	require.NoError(t, dlq.InsertTx(conn, DeadLetter(event, enums.OutboxDLQReasonMaxAttempts, long, time.Now())))
	other := event
	other.ID = uuid.New()
	require.NoError(t, dlq.InsertTx(conn, DeadLetter(other, enums.OutboxDLQReasonNonRetryable, errors.New("bad"), time.Now())))

	found, err := dlq.Lookup(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxLastErrorLen)
	assert.Equal(t, 4, found.AttemptCount)

	missing, err := dlq.Lookup(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	counts, err := dlq.CountByReason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[enums.OutboxDLQErrorReason]int64{
		enums.OutboxDLQReasonMaxAttempts:   1,
		enums.OutboxDLQReasonNonRetryable: 1,
	}, counts)
}
