package main

import (
	"context"
	"flag"
	"os"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Bootstraps a tenant for local development: business, admin user, primary
// warehouse and a few products.
//
//	go run ./cmd/seed-admin -name "Demo Shop" -email admin@demo.local -password changeme123
func main() {
	godotenv.Load()
	logger := config.GetLogger()

	name := flag.String("name", "Demo Shop", "business name")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	withSamples := flag.Bool("samples", true, "seed sample products")
	flag.Parse()

	if *email == "" || *password == "" {
		logger.Error("usage: seed-admin -name <business> -email <email> -password <password>")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if err := models.MigrateTable(config.GetDB()); err != nil {
		logger.Fatal("migration failed: " + err.Error())
	}

	ctx := context.Background()
	business, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: *name})
	if err != nil {
		logger.Fatal("create business failed: " + err.Error())
	}
	logger.Infof("business created: %s (%s)", business.Name, business.ID)

	user, err := models.CreateUser(ctx, business.ID, &models.NewUser{
		Name:     "Admin",
		Email:    *email,
		Password: *password,
		IsAdmin:  utils.NewTrue(),
	})
	if err != nil {
		logger.Fatal("create admin failed: " + err.Error())
	}
	logger.Infof("admin user created: %s", user.Email)

	tenantCtx := utils.SetBusinessIdInContext(ctx, business.ID)
	warehouse, err := models.CreateWarehouse(tenantCtx, &models.NewWarehouse{
		Name:      "Main Warehouse",
		IsPrimary: utils.NewTrue(),
	})
	if err != nil {
		logger.Fatal("create warehouse failed: " + err.Error())
	}
	logger.Infof("warehouse created: %s (#%d)", warehouse.Name, warehouse.ID)

	if !*withSamples {
		return
	}
	samples := []models.NewProduct{
		{Sku: "SKU-0001", Name: "Wooden Chair", UnitPrice: decimal.NewFromInt(45000), UnitCost: decimal.NewFromInt(30000), MinStock: decimal.NewFromInt(5)},
		{Sku: "SKU-0002", Name: "Wooden Table", UnitPrice: decimal.NewFromInt(120000), UnitCost: decimal.NewFromInt(80000), MinStock: decimal.NewFromInt(2)},
		{Sku: "SKU-0003", Name: "Table Set", UnitPrice: decimal.NewFromInt(290000), UnitCost: decimal.NewFromInt(200000), MinStock: decimal.NewFromInt(1)},
	}
	for i := range samples {
		product, err := models.CreateProduct(tenantCtx, &samples[i])
		if err != nil {
			logger.Fatal("create product failed: " + err.Error())
		}
		logger.Infof("product created: %s (#%d)", product.Name, product.ID)
	}
}
