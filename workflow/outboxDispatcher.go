package workflow

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxDispatcher drains models.EventRecord rows to pub/sub. Delivery is
// at-least-once: rows are claimed with SKIP LOCKED so concurrent dispatcher
// instances never double-claim within a poll, but a crash after publish and
// before the SENT update will republish. Consumers deduplicate by event id.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize    int
	PollInterval time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:           db,
		Logger:       logger,
		DispatcherID: uuid.NewString(),
		BatchSize:    50,
		PollInterval: 500 * time.Millisecond,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	if d.DB == nil {
		return
	}
	claimed, err := models.ClaimPendingEventRecords(ctx, d.DB, d.BatchSize)
	if err != nil {
		if d.Logger != nil {
			d.Logger.WithField("dispatcher_id", d.DispatcherID).
				Error("outbox claim failed: " + err.Error())
		}
		return
	}

	for _, record := range claimed {
		msg := config.NotificationMessage{
			ID:            record.ID,
			BusinessId:    record.BusinessId,
			EventType:     string(record.EventType),
			ReferenceType: string(record.ReferenceType),
			ReferenceId:   record.ReferenceId,
			OccurredAt:    record.CreatedAt.UTC(),
			Payload:       json.RawMessage(record.Payload),
			CorrelationId: record.CorrelationId,
		}
		pubId, pubErr := config.PublishNotificationWithResult(ctx, msg)
		if pubErr != nil {
			if err := models.MarkEventRecordFailed(ctx, d.DB, record, pubErr); err != nil && d.Logger != nil {
				d.Logger.WithFields(logrus.Fields{
					"dispatcher_id": d.DispatcherID,
					"record_id":     record.ID,
				}).Error("outbox failure mark failed: " + err.Error())
			}
			if d.Logger != nil {
				d.Logger.WithFields(logrus.Fields{
					"dispatcher_id": d.DispatcherID,
					"business_id":   record.BusinessId,
					"record_id":     record.ID,
					"attempt":       record.AttemptCount + 1,
				}).Error("outbox publish failed: " + pubErr.Error())
			}
			continue
		}
		if err := models.MarkEventRecordSent(ctx, d.DB, record); err != nil && d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"dispatcher_id":     d.DispatcherID,
				"record_id":         record.ID,
				"pubsub_message_id": pubId,
			}).Error("outbox sent mark failed: " + err.Error())
		}
	}
}
