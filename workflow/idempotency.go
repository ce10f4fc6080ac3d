package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/backoffice_backend/models"
)

// BeginIdempotency claims (operation, key) for this business. fresh is false
// when a previous submission already claimed it; the caller then replays the
// stored outcome instead of re-running the operation.
func BeginIdempotency(ctx context.Context, businessId string, operation string, key string) (record *models.IdempotencyKey, fresh bool, err error) {
	return models.ClaimIdempotencyKey(ctx, businessId, operation, key)
}

// FinishIdempotency stores the operation outcome on the claimed key.
func FinishIdempotency(ctx context.Context, record *models.IdempotencyKey, status models.IdempotencyStatus, referenceId *int) error {
	return models.ResolveIdempotencyKey(ctx, record, status, referenceId)
}
