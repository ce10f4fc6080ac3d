package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"bitbucket.org/mmdatafocus/backoffice_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

/* Response helpers. Business failures are results, not faults: the handler
returns 200 with {success:false, message}; only contract violations and
infrastructure faults produce 4xx/5xx. */

func respondOK(c *gin.Context, payload gin.H) {
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}

func respondError(c *gin.Context, funcName string, err error) {
	if utils.IsDomainError(err) {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
			"kind":    utils.KindOf(err),
		})
		return
	}
	config.LogError(config.GetLogger(), "server", funcName, "unexpected error", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "internal error",
	})
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "invalid request",
				"fields":  utils.ProcessValidationErrors(err),
			})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return 0, false
	}
	return id, true
}

// requestGate builds a per-request confirmation gate from the ?confirm
// query parameter. Destructive operations run only when confirm=true; any
// other value declines the prompt.
func requestGate(c *gin.Context) *workflow.ConfirmationGate {
	confirmed := c.Query("confirm") == "true"
	return workflow.NewConfirmationGate(workflow.StaticConfirmation(confirmed))
}

/* Businesses */

func createBusinessHandler(c *gin.Context) {
	var input models.NewBusiness
	if !bindJSON(c, &input) {
		return
	}
	business, err := models.CreateBusiness(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createBusinessHandler", err)
		return
	}
	respondOK(c, gin.H{"business": business})
}

/* Products */

func createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createProductHandler", err)
		return
	}
	respondOK(c, gin.H{"product": product})
}

func updateProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "updateProductHandler", err)
		return
	}
	respondOK(c, gin.H{"product": product})
}

func getProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getProductHandler", err)
		return
	}
	respondOK(c, gin.H{"product": product})
}

func listProductsHandler(c *gin.Context) {
	products, err := models.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, "listProductsHandler", err)
		return
	}
	respondOK(c, gin.H{"products": products})
}

/* Warehouses */

func createWarehouseHandler(c *gin.Context) {
	var input models.NewWarehouse
	if !bindJSON(c, &input) {
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createWarehouseHandler", err)
		return
	}
	respondOK(c, gin.H{"warehouse": warehouse})
}

func listWarehousesHandler(c *gin.Context) {
	warehouses, err := models.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, "listWarehousesHandler", err)
		return
	}
	respondOK(c, gin.H{"warehouses": warehouses})
}

/* Customers & suppliers */

func createCustomerHandler(c *gin.Context) {
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createCustomerHandler", err)
		return
	}
	respondOK(c, gin.H{"customer": customer})
}

func updateCustomerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "updateCustomerHandler", err)
		return
	}
	respondOK(c, gin.H{"customer": customer})
}

func getCustomerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getCustomerHandler", err)
		return
	}
	respondOK(c, gin.H{"customer": customer})
}

func createSupplierHandler(c *gin.Context) {
	var input models.NewSupplier
	if !bindJSON(c, &input) {
		return
	}
	supplier, err := models.CreateSupplier(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createSupplierHandler", err)
		return
	}
	respondOK(c, gin.H{"supplier": supplier})
}

func getSupplierHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	supplier, err := models.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getSupplierHandler", err)
		return
	}
	respondOK(c, gin.H{"supplier": supplier})
}

/* Orders */

func createOrderHandler(c *gin.Context) {
	var input models.NewOrder
	if !bindJSON(c, &input) {
		return
	}
	order, err := workflow.CreateOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

func updateOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewOrder
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.UpdateOrder(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "updateOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

func getOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

func completeOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	result, err := workflow.CompleteOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "completeOrderHandler", err)
		return
	}
	respondOK(c, gin.H{
		"order":          result.Order,
		"movements":      result.Movements,
		"journals":       result.Journals,
		"stock_warnings": result.StockWarnings,
	})
}

type orderStatusRequest struct {
	Status   models.OrderStatus     `json:"status" binding:"required"`
	Delivery *workflow.DeliveryInfo `json:"delivery"`
}

func orderStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req orderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, declined, err := workflow.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.Delivery, requestGate(c))
	if err != nil {
		respondError(c, "orderStatusHandler", err)
		return
	}
	if declined {
		respondOK(c, gin.H{"order": order, "declined": true})
		return
	}
	respondOK(c, gin.H{"order": order})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func orderPaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := workflow.UpdateOrderPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, "orderPaymentHandler", err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

func posOrderHandler(c *gin.Context) {
	var input models.NewOrder
	if !bindJSON(c, &input) {
		return
	}
	idempotencyKey := c.GetHeader("x-idempotency-key")
	result, err := workflow.CreateAndCompleteOrder(c.Request.Context(), &input, idempotencyKey)
	if err != nil {
		respondError(c, "posOrderHandler", err)
		return
	}
	respondOK(c, gin.H{
		"order":          result.Order,
		"movements":      result.Movements,
		"journals":       result.Journals,
		"stock_warnings": result.StockWarnings,
	})
}

/* Sales returns */

func createSalesReturnHandler(c *gin.Context) {
	var input models.NewSalesReturn
	if !bindJSON(c, &input) {
		return
	}
	salesReturn, err := workflow.CreateSalesReturn(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createSalesReturnHandler", err)
		return
	}
	respondOK(c, gin.H{"sales_return": salesReturn})
}

func getSalesReturnHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	salesReturn, err := models.GetSalesReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getSalesReturnHandler", err)
		return
	}
	respondOK(c, gin.H{"sales_return": salesReturn})
}

/* Quotations */

func createQuotationHandler(c *gin.Context) {
	var input models.NewQuotation
	if !bindJSON(c, &input) {
		return
	}
	quotation, err := models.CreateQuotation(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createQuotationHandler", err)
		return
	}
	respondOK(c, gin.H{"quotation": quotation})
}

func updateQuotationHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewQuotation
	if !bindJSON(c, &input) {
		return
	}
	quotation, err := models.UpdateQuotation(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "updateQuotationHandler", err)
		return
	}
	respondOK(c, gin.H{"quotation": quotation})
}

func getQuotationHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	quotation, err := models.GetQuotation(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getQuotationHandler", err)
		return
	}
	respondOK(c, gin.H{"quotation": quotation})
}

func deleteQuotationHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	declined, err := workflow.DeleteDraftQuotation(c.Request.Context(), id, requestGate(c))
	if err != nil {
		respondError(c, "deleteQuotationHandler", err)
		return
	}
	if declined {
		respondOK(c, gin.H{"declined": true})
		return
	}
	respondOK(c, gin.H{})
}

type quotationStatusRequest struct {
	Status models.QuotationStatus `json:"status" binding:"required"`
}

func quotationStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req quotationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	quotation, err := models.UpdateQuotationStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, "quotationStatusHandler", err)
		return
	}
	respondOK(c, gin.H{"quotation": quotation})
}

type convertQuotationRequest struct {
	WarehouseId int `json:"warehouse_id" binding:"required"`
}

func convertQuotationHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req convertQuotationRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := workflow.ConvertQuotationToOrder(c.Request.Context(), id, req.WarehouseId)
	if err != nil {
		respondError(c, "convertQuotationHandler", err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

/* Purchase orders */

func createPurchaseOrderHandler(c *gin.Context) {
	var input models.NewPurchaseOrder
	if !bindJSON(c, &input) {
		return
	}
	purchaseOrder, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createPurchaseOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"purchase_order": purchaseOrder})
}

func updatePurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewPurchaseOrder
	if !bindJSON(c, &input) {
		return
	}
	purchaseOrder, err := models.UpdatePurchaseOrder(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "updatePurchaseOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"purchase_order": purchaseOrder})
}

func getPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	purchaseOrder, err := models.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getPurchaseOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"purchase_order": purchaseOrder})
}

func deletePurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	declined, err := workflow.DeleteDraftPurchaseOrder(c.Request.Context(), id, requestGate(c))
	if err != nil {
		respondError(c, "deletePurchaseOrderHandler", err)
		return
	}
	if declined {
		respondOK(c, gin.H{"declined": true})
		return
	}
	respondOK(c, gin.H{})
}

type purchaseOrderStatusRequest struct {
	Status models.PurchaseOrderStatus `json:"status" binding:"required"`
}

func purchaseOrderStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req purchaseOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	purchaseOrder, err := workflow.UpdatePurchaseOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, "purchaseOrderStatusHandler", err)
		return
	}
	respondOK(c, gin.H{"purchase_order": purchaseOrder})
}

func purchaseOrderPaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	purchaseOrder, err := workflow.UpdatePurchaseOrderPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, "purchaseOrderPaymentHandler", err)
		return
	}
	respondOK(c, gin.H{"purchase_order": purchaseOrder})
}

/* Inventory */

func stockQueryHandler(c *gin.Context) {
	productId, err1 := strconv.Atoi(c.Query("product_id"))
	warehouseId, err2 := strconv.Atoi(c.Query("warehouse_id"))
	if err1 != nil || err2 != nil || productId <= 0 || warehouseId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "product_id and warehouse_id are required"})
		return
	}
	qty, err := models.AvailableQty(c.Request.Context(), productId, warehouseId)
	if err != nil {
		respondError(c, "stockQueryHandler", err)
		return
	}
	respondOK(c, gin.H{"product_id": productId, "warehouse_id": warehouseId, "qty": qty})
}

func lowStockHandler(c *gin.Context) {
	items, err := models.LowStockItems(c.Request.Context())
	if err != nil {
		respondError(c, "lowStockHandler", err)
		return
	}
	respondOK(c, gin.H{"items": items})
}

func createAdjustmentHandler(c *gin.Context) {
	var input models.NewInventoryAdjustment
	if !bindJSON(c, &input) {
		return
	}
	adjustment, err := models.CreateInventoryAdjustment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createAdjustmentHandler", err)
		return
	}
	respondOK(c, gin.H{"adjustment": adjustment})
}

func createTransferHandler(c *gin.Context) {
	var input models.NewStockTransfer
	if !bindJSON(c, &input) {
		return
	}
	transfer, err := models.CreateStockTransfer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createTransferHandler", err)
		return
	}
	respondOK(c, gin.H{"transfer": transfer})
}

func listMovementsHandler(c *gin.Context) {
	docType := models.DocType(c.Query("doc_type"))
	docId, err := strconv.Atoi(c.Query("doc_id"))
	if docType == "" || err != nil || docId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "doc_type and doc_id are required"})
		return
	}
	movements, err := models.ListMovements(c.Request.Context(), docType, docId)
	if err != nil {
		respondError(c, "listMovementsHandler", err)
		return
	}
	respondOK(c, gin.H{"movements": movements})
}

/* Manufacturing */

func saveBomHandler(c *gin.Context) {
	var input models.NewBillOfMaterial
	if !bindJSON(c, &input) {
		return
	}
	bom, err := models.SaveBillOfMaterial(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "saveBomHandler", err)
		return
	}
	respondOK(c, gin.H{"bom": bom})
}

func getBomHandler(c *gin.Context) {
	productId, ok := pathId(c)
	if !ok {
		return
	}
	bom, err := models.GetBillOfMaterial(c.Request.Context(), productId)
	if err != nil {
		respondError(c, "getBomHandler", err)
		return
	}
	respondOK(c, gin.H{"bom": bom})
}

func deleteBomHandler(c *gin.Context) {
	productId, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteBillOfMaterial(c.Request.Context(), productId); err != nil {
		respondError(c, "deleteBomHandler", err)
		return
	}
	respondOK(c, gin.H{})
}

func createWorkOrderHandler(c *gin.Context) {
	var input models.NewWorkOrder
	if !bindJSON(c, &input) {
		return
	}
	workOrder, err := models.CreateWorkOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createWorkOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"work_order": workOrder})
}

func getWorkOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	workOrder, err := models.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getWorkOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"work_order": workOrder})
}

func startWorkOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	workOrder, err := models.StartWorkOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "startWorkOrderHandler", err)
		return
	}
	respondOK(c, gin.H{"work_order": workOrder})
}

type workOrderStepsRequest struct {
	Steps []models.WorkOrderStepUpdate `json:"steps" binding:"required"`
}

func workOrderStepsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req workOrderStepsRequest
	if !bindJSON(c, &req) {
		return
	}
	workOrder, err := models.UpdateWorkOrderSteps(c.Request.Context(), id, req.Steps)
	if err != nil {
		respondError(c, "workOrderStepsHandler", err)
		return
	}
	respondOK(c, gin.H{"work_order": workOrder})
}

func completeWorkOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	workOrder, declined, err := workflow.CompleteWorkOrder(c.Request.Context(), id, requestGate(c))
	if err != nil {
		respondError(c, "completeWorkOrderHandler", err)
		return
	}
	if declined {
		respondOK(c, gin.H{"work_order": workOrder, "declined": true})
		return
	}
	respondOK(c, gin.H{"work_order": workOrder})
}

/* Accounting */

func createJournalHandler(c *gin.Context) {
	var input models.NewJournal
	if !bindJSON(c, &input) {
		return
	}
	journal, err := models.CreateJournal(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createJournalHandler", err)
		return
	}
	respondOK(c, gin.H{"journal": journal})
}

func getJournalHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	journal, err := models.GetJournal(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getJournalHandler", err)
		return
	}
	respondOK(c, gin.H{"journal": journal})
}

func listAccountsHandler(c *gin.Context) {
	accounts, err := models.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, "listAccountsHandler", err)
		return
	}
	respondOK(c, gin.H{"accounts": accounts})
}

/* Ops */

type outboxReviveRequest struct {
	BusinessId string `json:"business_id" binding:"required"`
}

func outboxReviveHandler(c *gin.Context) {
	var req outboxReviveRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := utils.SetSkipTenantScopeInContext(c.Request.Context(), true)
	revived, err := models.ReviveDeadEventRecords(ctx, config.GetDB(), req.BusinessId)
	if err != nil {
		respondError(c, "outboxReviveHandler", err)
		return
	}
	respondOK(c, gin.H{"revived": revived})
}
