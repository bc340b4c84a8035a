/*
handlers.go - HTTP handlers for the bookkeeping service

PURPOSE:
  Exposes the stream repositories and the reconciliation engine over
  REST. Handlers parse the request, delegate to domain logic, and map
  domain errors to HTTP status codes.

ENDPOINTS:
  Streams (purchases, sales, adjustments - identical shape):
    GET    /api/<stream>           List records (?history=true for all states)
    POST   /api/<stream>           Record a transaction
    PUT    /api/<stream>/{id}      Supersede a transaction
    DELETE /api/<stream>/{id}      Soft-delete a transaction
    DELETE /api/<stream>           Clear the stream (irreversible)

  Inventory:
    GET    /api/inventory          Reconciled snapshot
    GET    /api/inventory/summary  Snapshot aggregates
    GET    /api/inventory/search   Snapshot filtered by ?q=

USER IDENTITY:
  The caller passes its user key in the X-User-Key header; it selects
  the per-user container. Authentication itself is the deployment's
  concern (the service sits behind the user's own credentials).

ERROR MAPPING:
  400 validation, 404 no active row, 502 record-store failure,
  500 anything else.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/stockledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Purchases   *ledger.Repository[ledger.Record]
	Sales       *ledger.Repository[ledger.Record]
	Adjustments *ledger.Repository[ledger.AdjustmentRecord]
	Engine      *ledger.Engine
	Log         *logrus.Logger
}

func NewHandler(
	purchases, sales *ledger.Repository[ledger.Record],
	adjustments *ledger.Repository[ledger.AdjustmentRecord],
	engine *ledger.Engine,
	log *logrus.Logger,
) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Purchases:   purchases,
		Sales:       sales,
		Adjustments: adjustments,
		Engine:      engine,
		Log:         log,
	}
}

// =============================================================================
// TRANSACTION STREAM HANDLERS (purchases, sales)
// =============================================================================

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	h.listTransactions(w, r, h.Purchases)
}
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	h.createTransaction(w, r, h.Purchases)
}
func (h *Handler) UpdatePurchase(w http.ResponseWriter, r *http.Request) {
	h.updateTransaction(w, r, h.Purchases)
}
func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	h.deleteFrom(w, r, h.Purchases.DeleteByID)
}
func (h *Handler) ClearPurchases(w http.ResponseWriter, r *http.Request) {
	h.clearStream(w, r, h.Purchases.ClearAll)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	h.listTransactions(w, r, h.Sales)
}
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	h.createTransaction(w, r, h.Sales)
}
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	h.updateTransaction(w, r, h.Sales)
}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	h.deleteFrom(w, r, h.Sales.DeleteByID)
}
func (h *Handler) ClearSales(w http.ResponseWriter, r *http.Request) {
	h.clearStream(w, r, h.Sales.ClearAll)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request, repo *ledger.Repository[ledger.Record]) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	includeHistory := r.URL.Query().Get("history") == "true"
	records, err := repo.GetAll(r.Context(), userKey, includeHistory)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(records))
	for i, rec := range records {
		dtos[i] = toTransactionDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request, repo *ledger.Repository[ledger.Record]) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	rec, err := ledger.NewRecord(req.form())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	saved, err := repo.Save(r.Context(), userKey, rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(saved))
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request, repo *ledger.Repository[ledger.Record]) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	rec, err := ledger.NewRecord(req.form())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	updated, err := repo.UpdateByID(r.Context(), userKey, id, rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

// =============================================================================
// ADJUSTMENT STREAM HANDLERS
// =============================================================================

func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	includeHistory := r.URL.Query().Get("history") == "true"
	records, err := h.Adjustments.GetAll(r.Context(), userKey, includeHistory)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AdjustmentDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAdjustmentDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	rec, err := ledger.NewAdjustment(req.form())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	saved, err := h.Adjustments.Save(r.Context(), userKey, rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(saved))
}

func (h *Handler) UpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	rec, err := ledger.NewAdjustment(req.form())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	updated, err := h.Adjustments.UpdateByID(r.Context(), userKey, id, rec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTO(updated))
}

func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	h.deleteFrom(w, r, h.Adjustments.DeleteByID)
}

func (h *Handler) ClearAdjustments(w http.ResponseWriter, r *http.Request) {
	h.clearStream(w, r, h.Adjustments.ClearAll)
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// GetInventory returns the reconciled snapshot, newest activity first.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	snapshot, err := h.Engine.CurrentInventory(r.Context(), userKey)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionDTOs(snapshot))
}

// GetInventorySummary returns aggregates over the snapshot.
func (h *Handler) GetInventorySummary(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	snapshot, err := h.Engine.CurrentInventory(r.Context(), userKey)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	s := ledger.Summarize(snapshot)
	writeJSON(w, http.StatusOK, SummaryDTO{
		TotalItems:      s.TotalItems,
		TotalValue:      s.TotalValue.String(),
		LowStockItems:   s.LowStockItems,
		OutOfStockItems: s.OutOfStockItems,
	})
}

// SearchInventory filters the snapshot by ?q= substring.
func (h *Handler) SearchInventory(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}

	snapshot, err := h.Engine.CurrentInventory(r.Context(), userKey)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	matches := ledger.Search(snapshot, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, toPositionDTOs(matches))
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

func (h *Handler) deleteFrom(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, userKey, id string) error) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := del(r.Context(), userKey, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearStream(w http.ResponseWriter, r *http.Request, clear func(ctx context.Context, userKey string) error) {
	userKey, ok := h.userKey(w, r)
	if !ok {
		return
	}
	if err := clear(r.Context(), userKey); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userKey extracts the caller's user key; replies 400 when missing.
func (h *Handler) userKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("X-User-Key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "Missing X-User-Key header", nil)
		return "", false
	}
	return key, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: verr.Fields})
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsStore(err):
		h.Log.WithError(err).Error("record store failure")
		writeError(w, http.StatusBadGateway, "Record store unavailable", err)
	default:
		h.Log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Fields = map[string]string{"detail": err.Error()}
	}
	writeJSON(w, status, resp)
}
