/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the domain
  types. Decimals are serialized as strings so clients never receive
  lossy floats.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import "github.com/warp/stockledger/ledger"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// TransactionRequest is the body for creating or updating a purchase
// or sale.
type TransactionRequest struct {
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	Notes       string `json:"notes"`
}

func (r TransactionRequest) form() ledger.TransactionForm {
	return ledger.TransactionForm{
		ProductName: r.ProductName,
		UnitPrice:   r.UnitPrice,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Notes:       r.Notes,
	}
}

// AdjustmentRequest is the body for creating or updating a manual
// stock adjustment.
type AdjustmentRequest struct {
	ProductName   string `json:"product_name"`
	PurchasePrice string `json:"purchase_price"`
	SellingPrice  string `json:"selling_price"`
	Quantity      string `json:"quantity"`
	Unit          string `json:"unit"`
	Notes         string `json:"notes"`
}

func (r AdjustmentRequest) form() ledger.AdjustmentForm {
	return ledger.AdjustmentForm{
		ProductName:   r.ProductName,
		PurchasePrice: r.PurchasePrice,
		SellingPrice:  r.SellingPrice,
		Quantity:      r.Quantity,
		Unit:          r.Unit,
		Notes:         r.Notes,
	}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TransactionDTO represents a purchase or sale row.
type TransactionDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	TotalAmount string `json:"total_amount"`
	Notes       string `json:"notes,omitempty"`
	Status      string `json:"status"`
}

func toTransactionDTO(r ledger.Record) TransactionDTO {
	return TransactionDTO{
		ID:          r.ID,
		Date:        r.Date,
		ProductName: r.ProductName,
		UnitPrice:   r.UnitPrice.String(),
		Quantity:    r.Quantity.String(),
		Unit:        r.Unit,
		TotalAmount: r.TotalAmount.String(),
		Notes:       r.Notes,
		Status:      string(r.Status),
	}
}

// AdjustmentDTO represents a manual stock adjustment row.
type AdjustmentDTO struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	ProductName   string `json:"product_name"`
	PurchasePrice string `json:"purchase_price"`
	SellingPrice  string `json:"selling_price"`
	Quantity      string `json:"quantity"`
	Unit          string `json:"unit"`
	TotalValue    string `json:"total_value"`
	Notes         string `json:"notes,omitempty"`
	Status        string `json:"status"`
}

func toAdjustmentDTO(r ledger.AdjustmentRecord) AdjustmentDTO {
	return AdjustmentDTO{
		ID:            r.ID,
		Date:          r.Date,
		ProductName:   r.ProductName,
		PurchasePrice: r.PurchasePrice.String(),
		SellingPrice:  r.SellingPrice.String(),
		Quantity:      r.Quantity.String(),
		Unit:          r.Unit,
		TotalValue:    r.TotalValue().String(),
		Notes:         r.Notes,
		Status:        string(r.Status),
	}
}

// PositionDTO represents one reconciled inventory position.
type PositionDTO struct {
	ProductName          string `json:"product_name"`
	Unit                 string `json:"unit"`
	AvailableQuantity    string `json:"available_quantity"`
	TotalPurchaseValue   string `json:"total_purchase_value"`
	TotalSalesValue      string `json:"total_sales_value"`
	AveragePurchasePrice string `json:"average_purchase_price"`
	SellingPrice         string `json:"selling_price"`
	LastPurchaseDate     string `json:"last_purchase_date,omitempty"`
	LastSaleDate         string `json:"last_sale_date,omitempty"`
	Date                 string `json:"date"`
	Notes                string `json:"notes,omitempty"`
	StockStatus          string `json:"stock_status"`
}

func toPositionDTOs(snapshot []ledger.Position) []PositionDTO {
	dtos := make([]PositionDTO, len(snapshot))
	for i, p := range snapshot {
		dtos[i] = PositionDTO{
			ProductName:          p.ProductName,
			Unit:                 p.Unit,
			AvailableQuantity:    p.AvailableQuantity.String(),
			TotalPurchaseValue:   p.TotalPurchaseValue.String(),
			TotalSalesValue:      p.TotalSalesValue.String(),
			AveragePurchasePrice: p.AveragePurchasePrice.String(),
			SellingPrice:         p.SellingPrice.String(),
			LastPurchaseDate:     p.LastPurchaseDate,
			LastSaleDate:         p.LastSaleDate,
			Date:                 p.Date,
			Notes:                p.Notes,
			StockStatus:          string(p.Status),
		}
	}
	return dtos
}

// SummaryDTO aggregates a snapshot for dashboard cards.
type SummaryDTO struct {
	TotalItems      int    `json:"total_items"`
	TotalValue      string `json:"total_value"`
	LowStockItems   int    `json:"low_stock_items"`
	OutOfStockItems int    `json:"out_of_stock_items"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
