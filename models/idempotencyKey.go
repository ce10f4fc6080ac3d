package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/go-sql-driver/mysql"
)

// IdempotencyKey guards externally-triggered mutations against retries. The
// unique index makes the first insert win; a duplicate insert means the
// operation already ran (or is running) and the stored outcome applies.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	BusinessId  string            `gorm:"index:idx_idem_key,unique,priority:1;not null" json:"business_id"`
	Operation   string            `gorm:"index:idx_idem_key,unique,priority:2;size:100;not null" json:"operation"`
	Key         string            `gorm:"index:idx_idem_key,unique,priority:3;size:100;not null" json:"key"`
	Status      IdempotencyStatus `gorm:"size:20;not null" json:"status"`
	ReferenceId *int              `json:"reference_id"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

const mysqlErrDuplicateEntry = 1062

// ClaimIdempotencyKey inserts a STARTED row for (operation, key). The second
// return value is false when the key was already claimed; the caller should
// then fetch the row and replay or reject. A key whose previous attempt ended
// FAILED is re-claimed rather than replayed, so a retry after a failure can
// run the operation again.
func ClaimIdempotencyKey(ctx context.Context, businessId string, operation string, key string) (*IdempotencyKey, bool, error) {
	record := IdempotencyKey{
		BusinessId: businessId,
		Operation:  operation,
		Key:        key,
		Status:     IdempotencyStatusStarted,
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&record).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			existing, fetchErr := GetIdempotencyKey(ctx, businessId, operation, key)
			if fetchErr != nil {
				return nil, false, fetchErr
			}
			if existing.Status == IdempotencyStatusFailed {
				res := db.WithContext(ctx).Model(&IdempotencyKey{}).
					Where("id = ? AND status = ?", existing.ID, IdempotencyStatusFailed).
					Update("status", IdempotencyStatusStarted)
				if res.Error != nil {
					return nil, false, res.Error
				}
				// RowsAffected 0 means a concurrent retry won the re-claim.
				if res.RowsAffected == 1 {
					existing.Status = IdempotencyStatusStarted
					return existing, true, nil
				}
				existing.Status = IdempotencyStatusStarted
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return &record, true, nil
}

func GetIdempotencyKey(ctx context.Context, businessId string, operation string, key string) (*IdempotencyKey, error) {
	db := config.GetDB()
	var record IdempotencyKey
	err := db.WithContext(ctx).
		Where("business_id = ? AND operation = ? AND `key` = ?", businessId, operation, key).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ResolveIdempotencyKey records the final outcome. referenceId points at the
// created document for SUCCEEDED outcomes.
func ResolveIdempotencyKey(ctx context.Context, record *IdempotencyKey, status IdempotencyStatus, referenceId *int) error {
	if status == IdempotencyStatusStarted {
		return utils.ValidationErrorf("cannot resolve an idempotency key back to started")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"Status":      status,
		"ReferenceId": referenceId,
	}).Error
}
