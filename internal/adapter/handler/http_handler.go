// Package handler exposes the marketplace over an HTTP JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isakhq/marketplace/internal/auth"
	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/core/service"
)

// HTTPHandler wires the core services to HTTP routes.
type HTTPHandler struct {
	catalog   *service.CatalogService
	purchases *service.PurchaseService
	verifier  *auth.Verifier
}

func NewHTTPHandler(catalog *service.CatalogService, purchases *service.PurchaseService, verifier *auth.Verifier) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, purchases: purchases, verifier: verifier}
}

// Register installs all routes on the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/items", h.QueryCatalog)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("POST /api/items", RequireAuth(h.verifier, h.CreateListing))
	mux.HandleFunc("POST /api/purchase", RequireAuth(h.verifier, h.Purchase))
	mux.HandleFunc("GET /api/profile", RequireAuth(h.verifier, h.Profile))
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
}

type itemResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Price          int    `json:"price"`
	Category       string `json:"category"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Description    string `json:"description"`
	AssetRef       string `json:"asset_ref"`
	PublishedAt    string `json:"published_at"`
	OwnerID        string `json:"owner_id"`
	SoldOut        bool   `json:"sold_out"`
}

type entryResponse struct {
	ID           string `json:"id"`
	SellerID     string `json:"seller_id"`
	BuyerID      string `json:"buyer_id"`
	ItemID       string `json:"item_id"`
	Quantity     int    `json:"quantity"`
	BuyerMessage string `json:"buyer_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func toItemResponse(item *domain.CatalogItem) itemResponse {
	resp := itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Category:    string(item.Category),
		Description: item.Description,
		AssetRef:    item.AssetRef,
		PublishedAt: item.PublishedAt.Format(time.RFC3339),
		OwnerID:     item.OwnerID,
		SoldOut:     item.SoldOut(),
	}
	if item.ExpirationDate != nil {
		resp.ExpirationDate = item.ExpirationDate.Format("2006-01-02")
	}
	return resp
}

func toEntryResponse(e *domain.LedgerEntry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		SellerID:     e.SellerID,
		BuyerID:      e.BuyerID,
		ItemID:       e.ItemID,
		Quantity:     e.Quantity,
		BuyerMessage: e.BuyerMessage,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func toItemResponses(items []domain.CatalogItem) []itemResponse {
	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = toItemResponse(&items[i])
	}
	return out
}

// QueryCatalog serves the storefront listing: free-text search, category
// guard, and one of the four sort modes. Unknown sort or category values
// are rejected here, not silently defaulted.
func (h *HTTPHandler) QueryCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := domain.ParseSortMode(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "sort", err.Error())
		return
	}
	category, err := domain.ParseFilterCategory(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "category", err.Error())
		return
	}

	items, err := h.catalog.Query(r.Context(), q.Get("search"), mode, category)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items)})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

type listingRequest struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Price          int    `json:"price"`
	Category       string `json:"category"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Description    string `json:"description"`
	AssetName      string `json:"asset_name,omitempty"`
}

func (h *HTTPHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "", "invalid request body")
		return
	}

	item, err := h.catalog.CreateListing(r.Context(), PrincipalFrom(r.Context()), service.ListingInput{
		Name:           req.Name,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Category:       req.Category,
		ExpirationDate: req.ExpirationDate,
		Description:    req.Description,
		AssetName:      req.AssetName,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

type purchaseRequest struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type purchaseResponse struct {
	Entry entryResponse `json:"entry"`
	Item  itemResponse  `json:"item"`
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "", "invalid request body")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "validation", "item_id", "item_id is required")
		return
	}

	entry, item, err := h.purchases.Purchase(r.Context(), PrincipalFrom(r.Context()), service.PurchaseInput{
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Message:   req.Message,
		RequestID: req.RequestID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Entry: toEntryResponse(entry),
		Item:  toItemResponse(item),
	})
}

type profileResponse struct {
	Items   []itemResponse  `json:"items"`
	History []entryResponse `json:"history"`
}

// Profile returns the principal's own listings and their side of the
// ledger, both as materialized sequences.
func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())

	items, err := h.catalog.ItemsByOwner(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	history, err := h.purchases.History(r.Context(), principal)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	entries := make([]entryResponse, len(history))
	for i := range history {
		entries[i] = toEntryResponse(&history[i])
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Items:   toItemResponses(items),
		History: entries,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps core error kinds onto HTTP statuses. Every kind
// propagates with enough detail for a field-specific message; nothing is
// swallowed.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation", verr.Field, verr.Message)
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "not_found", "", "item not found")
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", "quantity", "quantity must be at least 1")
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusGone, "insufficient_stock", "quantity", "not enough stock remaining")
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", "request_id", "this purchase was already submitted")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "", "authentication required")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusServiceUnavailable, "conflict", "", "temporary contention, retry the request")
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, kind, field, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Field: field, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
