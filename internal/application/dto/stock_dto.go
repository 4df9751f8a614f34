package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRowResponse existencia de un lote en una bodega.
type StockRowResponse struct {
	WarehouseID   int64           `json:"warehouse_id"`
	LotID         int64           `json:"lot_id"`
	Available     decimal.Decimal `json:"available"`
	Reserved      decimal.Decimal `json:"reserved"`
	MinThreshold  decimal.Decimal `json:"min_threshold"`
	LastUpdatedAt *time.Time      `json:"last_updated_at,omitempty"`
	Exists        bool            `json:"exists"`
}

// LowStockResponse fila por debajo de su mínimo.
type LowStockResponse struct {
	WarehouseID  int64           `json:"warehouse_id"`
	LotID        int64           `json:"lot_id"`
	Available    decimal.Decimal `json:"available"`
	MinThreshold decimal.Decimal `json:"min_threshold"`
	Missing      decimal.Decimal `json:"missing"`
}

// MinThresholdRequest body para PUT /api/stock/:warehouse_id/:lot_id/min-threshold.
type MinThresholdRequest struct {
	MinThreshold decimal.Decimal `json:"min_threshold"`
}

// PlanLineDTO cantidad asignada a un lote.
type PlanLineDTO struct {
	LotID     int64           `json:"lot_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	ExpiresAt string          `json:"expires_at,omitempty"`
}

// PlanDTO plan FEFO.
type PlanDTO struct {
	Pool      string          `json:"pool"`
	Requested decimal.Decimal `json:"requested"`
	Covered   decimal.Decimal `json:"covered"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Lines     []PlanLineDTO   `json:"lines"`
}

// CoverageQuery query de GET /api/allocation/coverage.
type CoverageQuery struct {
	WarehouseID    int64  `query:"warehouse_id" validate:"required,gt=0"`
	PresentationID int64  `query:"presentation_id" validate:"required,gt=0"`
	Quantity       string `query:"quantity" validate:"required"`
}

// CoverageResponse cobertura por pool.
type CoverageResponse struct {
	WarehouseID    int64           `json:"warehouse_id"`
	PresentationID int64           `json:"presentation_id"`
	Requested      decimal.Decimal `json:"requested"`
	Available      PlanDTO         `json:"available"`
	Reserved       PlanDTO         `json:"reserved"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// ReceiptRequest body para POST /api/receipts.
type ReceiptRequest struct {
	ReceiptID      int64           `json:"receipt_id" validate:"required,gt=0"`
	ReceiptLineID  int64           `json:"receipt_line_id" validate:"required,gt=0"`
	WarehouseID    int64           `json:"warehouse_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	LotCode        string          `json:"lot_code" validate:"required,max=60"`
	ManufacturedAt string          `json:"manufactured_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpiresAt      string          `json:"expires_at" validate:"required,datetime=2006-01-02"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// ReceiptResponse lote creado y existencia resultante.
type ReceiptResponse struct {
	LotID     int64            `json:"lot_id"`
	LotCode   string           `json:"lot_code"`
	ExpiresAt string           `json:"expires_at"`
	Stock     StockRowResponse `json:"stock"`
}

// AdjustmentRequest body para POST /api/adjustments.
type AdjustmentRequest struct {
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	LotID       int64           `json:"lot_id" validate:"required,gt=0"`
	Direction   string          `json:"direction" validate:"required,oneof=ingress egress"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason" validate:"required,max=200"`
}

// AdjustmentResponse resultado de un ajuste.
type AdjustmentResponse struct {
	OperationID string           `json:"operation_id"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Stock       StockRowResponse `json:"stock"`
}

// ReconcileRequest body para POST /api/reconcile.
type ReconcileRequest struct {
	WarehouseIDs []int64 `json:"warehouse_ids" validate:"omitempty,dive,gt=0"`
}

// BalanceDTO disponible y reservado.
type BalanceDTO struct {
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
}

// DiscrepancyDTO diferencia entre kardex y existencia.
type DiscrepancyDTO struct {
	WarehouseID int64      `json:"warehouse_id"`
	LotID       int64      `json:"lot_id"`
	Expected    BalanceDTO `json:"expected"`
	Actual      BalanceDTO `json:"actual"`
}

// ReconcileReportDTO resultado de conciliar una bodega.
type ReconcileReportDTO struct {
	WarehouseID   int64            `json:"warehouse_id"`
	RowsChecked   int              `json:"rows_checked"`
	OK            bool             `json:"ok"`
	Discrepancies []DiscrepancyDTO `json:"discrepancies"`
	CheckedAt     time.Time        `json:"checked_at"`
}
