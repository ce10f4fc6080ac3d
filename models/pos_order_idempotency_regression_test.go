package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"bitbucket.org/mmdatafocus/backoffice_backend/workflow"
	"github.com/shopspring/decimal"
)

// Regression: a POS submit retried with the same idempotency key must post
// exactly once. The second call replays the stored result; stock and journals
// reflect a single sale.
func TestPosOrderDuplicateSubmitPostsOnce(t *testing.T) {
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
	business, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: "Test Biz"})
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

	// Seed 10 units via an adjustment.
	_, err = models.CreateInventoryAdjustment(ctx, &models.NewInventoryAdjustment{
		WarehouseId: warehouse.ID,
		Reason:      "opening stock",
		Items: []models.NewInventoryAdjustmentItem{
			{ProductId: product.ID, ActualQty: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInventoryAdjustment: %v", err)
	}

	input := &models.NewOrder{
		CustomerId:  customer.ID,
		WarehouseId: warehouse.ID,
		Items: []models.NewOrderItem{
			{ProductId: product.ID, Qty: decimal.NewFromInt(3)},
		},
	}

	first, err := workflow.CreateAndCompleteOrder(ctx, input, "pos-key-1")
	if err != nil {
		t.Fatalf("first CreateAndCompleteOrder: %v", err)
	}
	if first.Order.CurrentStatus != models.OrderStatusCompleted {
		t.Fatalf("order status: got %s", first.Order.CurrentStatus)
	}
	if first.Order.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("payment status: got %s", first.Order.PaymentStatus)
	}

	second, err := workflow.CreateAndCompleteOrder(ctx, input, "pos-key-1")
	if err != nil {
		t.Fatalf("second CreateAndCompleteOrder: %v", err)
	}
	if second.Order.ID != first.Order.ID {
		t.Fatalf("replay created a new order: %d vs %d", second.Order.ID, first.Order.ID)
	}

	// Stock decremented exactly once: 10 - 3 = 7.
	available, err := models.AvailableQty(ctx, product.ID, warehouse.ID)
	if err != nil {
		t.Fatalf("AvailableQty: %v", err)
	}
	if !available.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("available: got %s, want 7", available)
	}

	// Item quantity agrees with the ledger.
	ledger, err := models.LedgerQtySum(ctx, business.ID, product.ID, warehouse.ID)
	if err != nil {
		t.Fatalf("LedgerQtySum: %v", err)
	}
	if !ledger.Equal(available) {
		t.Fatalf("ledger %s disagrees with item qty %s", ledger, available)
	}

	// One revenue journal and one COGS journal, each balanced.
	journals, err := models.ListJournalsForDoc(ctx, models.DocTypeOrder, first.Order.ID)
	if err != nil {
		t.Fatalf("ListJournalsForDoc: %v", err)
	}
	if len(journals) != 2 {
		t.Fatalf("journals: got %d, want 2", len(journals))
	}
	for _, journal := range journals {
		debit := decimal.Zero
		credit := decimal.Zero
		for _, line := range journal.Transactions {
			debit = debit.Add(line.Debit)
			credit = credit.Add(line.Credit)
		}
		if !debit.Equal(credit) {
			t.Fatalf("journal %s unbalanced: debit %s, credit %s", journal.JournalNumber, debit, credit)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("backoffice-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("backoffice-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=backoffice_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
