package models

import (
	"gorm.io/gorm"
)

// MigrateTable runs AutoMigrate for every entity. Ordering matters only for
// readability; gorm resolves foreign keys per table.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Business{},
		&User{},
		&Account{},
		&Product{},
		&Warehouse{},
		&Customer{},
		&Supplier{},
		&InventoryItem{},
		&InventoryMovement{},
		&InventoryAdjustment{},
		&InventoryAdjustmentItem{},
		&StockTransfer{},
		&StockTransferItem{},
		&Order{},
		&OrderItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Quotation{},
		&QuotationItem{},
		&SalesReturn{},
		&SalesReturnItem{},
		&BillOfMaterial{},
		&BomComponent{},
		&WorkOrder{},
		&ProductionStep{},
		&Journal{},
		&JournalTransaction{},
		&EventRecord{},
		&IdempotencyKey{},
	)
}
