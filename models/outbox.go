package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRecord is the transactional outbox row. Business operations insert
// one in the same transaction as their writes; the dispatcher publishes it
// to pub/sub afterwards, so an event exists iff its transaction committed.
type EventRecord struct {
	ID            string              `gorm:"size:36;primary_key" json:"id"` // uuid
	BusinessId    string              `gorm:"index;not null" json:"business_id"`
	EventType     EventType           `gorm:"size:50;not null" json:"event_type"`
	ReferenceType DocType             `gorm:"size:20;not null" json:"reference_type"`
	ReferenceId   int                 `gorm:"index;not null" json:"reference_id"`
	Payload       string              `gorm:"type:json" json:"payload"`
	PublishStatus OutboxPublishStatus `gorm:"size:20;index;not null" json:"publish_status"`
	AttemptCount  int                 `gorm:"default:0" json:"attempt_count"`
	LastError     string              `gorm:"size:1000" json:"last_error"`
	NextAttemptAt time.Time           `gorm:"index;not null" json:"next_attempt_at"`
	CorrelationId string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

const outboxMaxAttempts = 8

// InsertEventRecordTx writes an outbox row inside the caller's transaction.
func InsertEventRecordTx(ctx context.Context, tx *gorm.DB, businessId string, eventType EventType, referenceType DocType, referenceId int, payload string) (*EventRecord, error) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	record := EventRecord{
		ID:            uuid.NewString(),
		BusinessId:    businessId,
		EventType:     eventType,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		NextAttemptAt: time.Now().UTC(),
		CorrelationId: correlationId,
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ClaimPendingEventRecords marks up to limit due rows PROCESSING and returns
// them. SKIP LOCKED keeps concurrent dispatcher instances off each other's
// batches.
func ClaimPendingEventRecords(ctx context.Context, db *gorm.DB, limit int) ([]*EventRecord, error) {
	var records []*EventRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("publish_status IN ? AND next_attempt_at <= ?",
				[]OutboxPublishStatus{OutboxPublishStatusPending, OutboxPublishStatusFailed},
				time.Now().UTC()).
			Order("created_at").
			Limit(limit).
			Find(&records).Error
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := tx.Model(record).
				Update("publish_status", OutboxPublishStatusProcessing).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkEventRecordSent finalizes a published row.
func MarkEventRecordSent(ctx context.Context, db *gorm.DB, record *EventRecord) error {
	return db.WithContext(ctx).Model(record).
		Update("publish_status", OutboxPublishStatusSent).Error
}

// MarkEventRecordFailed records a publish failure with exponential backoff;
// after outboxMaxAttempts the row is parked DEAD for manual revival.
func MarkEventRecordFailed(ctx context.Context, db *gorm.DB, record *EventRecord, publishErr error) error {
	attempts := record.AttemptCount + 1
	status := OutboxPublishStatusFailed
	if attempts >= outboxMaxAttempts {
		status = OutboxPublishStatusDead
	}
	backoff := time.Duration(1<<uint(min(attempts, 6))) * time.Second
	return db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"publish_status":  status,
		"attempt_count":   attempts,
		"last_error":      publishErr.Error(),
		"next_attempt_at": time.Now().UTC().Add(backoff),
	}).Error
}

// ReviveDeadEventRecords flips DEAD rows back to PENDING. Operational
// escape hatch once the downstream outage is resolved.
func ReviveDeadEventRecords(ctx context.Context, db *gorm.DB, businessId string) (int64, error) {
	result := db.WithContext(ctx).Model(&EventRecord{}).
		Where("business_id = ? AND publish_status = ?", businessId, OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"publish_status":  OutboxPublishStatusPending,
			"attempt_count":   0,
			"next_attempt_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
