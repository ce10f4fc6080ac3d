package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"bitbucket.org/mmdatafocus/backoffice_backend/workflow"
	"github.com/shopspring/decimal"
)

type postingTestEnv struct {
	ctx         context.Context
	businessId  string
	warehouseId int
	customerId  int
	productId   int
}

func setupPostingTestEnv(t *testing.T, openingStock int64) postingTestEnv {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })
	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "backoffice_test")
	t.Setenv("COST_TRACKING_ENABLED", "true")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(config.GetDB()); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx := context.Background()
	business, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: "Posting Biz"})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	ctx = utils.SetBusinessIdInContext(ctx, business.ID)

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Main"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku:       "SKU-1",
		Name:      "Chair",
		UnitPrice: decimal.NewFromInt(45000),
		UnitCost:  decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if openingStock > 0 {
		_, err = models.CreateInventoryAdjustment(ctx, &models.NewInventoryAdjustment{
			WarehouseId: warehouse.ID,
			Reason:      "opening stock",
			Items: []models.NewInventoryAdjustmentItem{
				{ProductId: product.ID, ActualQty: decimal.NewFromInt(openingStock)},
			},
		})
		if err != nil {
			t.Fatalf("CreateInventoryAdjustment: %v", err)
		}
	}

	return postingTestEnv{
		ctx:         ctx,
		businessId:  business.ID,
		warehouseId: warehouse.ID,
		customerId:  customer.ID,
		productId:   product.ID,
	}
}

// A fully discounted order has a zero total. Completing it posts the stock
// deduction and COGS but skips the revenue journal instead of failing on an
// unbalanced single-line journal.
func TestFullyDiscountedOrderCompletes(t *testing.T) {
	env := setupPostingTestEnv(t, 5)

	pct := models.DiscountTypePercentage
	order, err := workflow.CreateOrder(env.ctx, &models.NewOrder{
		CustomerId:   env.customerId,
		WarehouseId:  env.warehouseId,
		Discount:     decimal.NewFromInt(100),
		DiscountType: &pct,
		Items: []models.NewOrderItem{
			{ProductId: env.productId, Qty: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.Total.IsZero() {
		t.Fatalf("total: got %s, want 0", order.Total)
	}

	result, err := workflow.CompleteOrder(env.ctx, order.ID)
	if err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	if result.Order.CurrentStatus != models.OrderStatusCompleted {
		t.Fatalf("order status: got %s", result.Order.CurrentStatus)
	}

	journals, err := models.ListJournalsForDoc(env.ctx, models.DocTypeOrder, order.ID)
	if err != nil {
		t.Fatalf("ListJournalsForDoc: %v", err)
	}
	for _, journal := range journals {
		if strings.HasPrefix(journal.Description, "Sale ") {
			t.Fatalf("zero-total order posted revenue journal %s", journal.JournalNumber)
		}
	}

	available, err := models.AvailableQty(env.ctx, env.productId, env.warehouseId)
	if err != nil {
		t.Fatalf("AvailableQty: %v", err)
	}
	if !available.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("available: got %s, want 3", available)
	}
}

// Two simultaneous payments must not both clear the outstanding-balance
// check. One lands, the other is rejected against the updated balance, and
// the books record a single receipt.
func TestConcurrentOrderPaymentsCannotExceedOutstanding(t *testing.T) {
	env := setupPostingTestEnv(t, 5)

	order, err := workflow.CreateOrder(env.ctx, &models.NewOrder{
		CustomerId:  env.customerId,
		WarehouseId: env.warehouseId,
		Items: []models.NewOrderItem{
			{ProductId: env.productId, Qty: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := workflow.CompleteOrder(env.ctx, order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	// Total 90000, nothing paid. Each payment alone fits the balance;
	// together they exceed it.
	amount := decimal.NewFromInt(60000)
	start := time.Now()
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := workflow.UpdateOrderPayment(env.ctx, order.ID, amount)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if utils.KindOf(err) != utils.ErrorKindValidation {
			t.Fatalf("unexpected failure kind %s: %v", utils.KindOf(err), err)
		}
		rejected++
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("got %d successes and %d rejections, want 1 and 1", succeeded, rejected)
	}
	// Serialization happens through the row and advisory locks; neither
	// caller should burn the 30s lock acquisition timeout.
	if elapsed := time.Since(start); elapsed > 20*time.Second {
		t.Fatalf("payments took %s", elapsed)
	}

	updated, err := models.GetOrder(env.ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !updated.AmountPaid.Equal(amount) {
		t.Fatalf("amount paid: got %s, want %s", updated.AmountPaid, amount)
	}
	if updated.PaymentStatus != models.PaymentStatusPartiallyPaid {
		t.Fatalf("payment status: got %s", updated.PaymentStatus)
	}

	// Sale, COGS, and exactly one cash receipt.
	journals, err := models.ListJournalsForDoc(env.ctx, models.DocTypeOrder, order.ID)
	if err != nil {
		t.Fatalf("ListJournalsForDoc: %v", err)
	}
	if len(journals) != 3 {
		t.Fatalf("journals: got %d, want 3", len(journals))
	}
}

// A failed POS submission must not poison its idempotency key. Retrying with
// the same key runs the operation again; once it succeeds, further retries
// replay the stored result.
func TestFailedPosSubmitKeyIsReusable(t *testing.T) {
	env := setupPostingTestEnv(t, 2)

	over := &models.NewOrder{
		CustomerId:  env.customerId,
		WarehouseId: env.warehouseId,
		Items: []models.NewOrderItem{
			{ProductId: env.productId, Qty: decimal.NewFromInt(5)},
		},
	}
	_, err := workflow.CreateAndCompleteOrder(env.ctx, over, "pos-retry-1")
	if utils.KindOf(err) != utils.ErrorKindInsufficientStock {
		t.Fatalf("first submit: got %v, want insufficient stock", err)
	}

	good := &models.NewOrder{
		CustomerId:  env.customerId,
		WarehouseId: env.warehouseId,
		Items: []models.NewOrderItem{
			{ProductId: env.productId, Qty: decimal.NewFromInt(1)},
		},
	}
	result, err := workflow.CreateAndCompleteOrder(env.ctx, good, "pos-retry-1")
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if result.Order.CurrentStatus != models.OrderStatusCompleted {
		t.Fatalf("order status: got %s", result.Order.CurrentStatus)
	}

	replay, err := workflow.CreateAndCompleteOrder(env.ctx, good, "pos-retry-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Order.ID != result.Order.ID {
		t.Fatalf("replay created a new order: %d vs %d", replay.Order.ID, result.Order.ID)
	}
}
