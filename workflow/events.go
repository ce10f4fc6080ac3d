package workflow

import (
	"context"
	"encoding/json"

	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"gorm.io/gorm"
)

// emitEvent writes an outbox row inside the caller's transaction. The event
// is published by the dispatcher only after the transaction commits.
func emitEvent(ctx context.Context, tx *gorm.DB, businessId string, eventType models.EventType, referenceType models.DocType, referenceId int, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = models.InsertEventRecordTx(ctx, tx, businessId, eventType, referenceType, referenceId, string(body))
	return err
}
