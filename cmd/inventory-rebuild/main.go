package main

import (
	"context"
	"flag"
	"os"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"bitbucket.org/mmdatafocus/backoffice_backend/workflow"
	"github.com/joho/godotenv"
)

// Recomputes inventory item quantities from the movement ledger for one
// business. Run after a suspected drift (crash mid-posting, manual row edit):
//
//	go run ./cmd/inventory-rebuild -business <business-id> [-dry-run]
func main() {
	godotenv.Load()
	logger := config.GetLogger()

	businessId := flag.String("business", "", "business id to rebuild")
	dryRun := flag.Bool("dry-run", false, "report drift without writing")
	flag.Parse()

	if *businessId == "" {
		logger.Error("usage: inventory-rebuild -business <business-id> [-dry-run]")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	if *dryRun {
		drift, err := workflow.InventoryDriftReport(ctx, db, *businessId)
		if err != nil {
			logger.Fatal("drift report failed: " + err.Error())
		}
		for _, d := range drift {
			logger.Warnf("drift product=%d warehouse=%d item=%s ledger=%s",
				d.ProductId, d.WarehouseId, d.ItemQty.String(), d.LedgerQty.String())
		}
		logger.Infof("dry run: %d drifted bucket(s)", len(drift))
		return
	}

	result, err := workflow.RebuildInventoryFromLedger(ctx, db, logger, *businessId)
	if err != nil {
		logger.Fatal("rebuild failed: " + err.Error())
	}
	logger.Infof("rebuild done: %d bucket(s) checked, %d corrected",
		result.BucketsChecked, result.BucketsCorrected)
}
