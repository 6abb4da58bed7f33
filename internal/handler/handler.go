// Package handler exposes the back-office engine over a small REST surface.
// It is a thin layer: requests are decoded, delegated to repositories or the
// order commit engine, and domain errors are mapped to HTTP statuses.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
)

// Handler routes REST requests to the repositories and the commit engine.
type Handler struct {
	clients  client.Repository
	products product.Repository
	orders   order.Repository
	engine   *order.Service

	ordersCommitted metric.Int64Counter
}

// New constructs a Handler. The meter is used to count committed orders.
func New(
	clients client.Repository,
	products product.Repository,
	orders order.Repository,
	engine *order.Service,
	meter metric.Meter,
) (*Handler, error) {
	committed, err := meter.Int64Counter("backoffice.orders.committed",
		metric.WithDescription("Number of successfully committed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}

	return &Handler{
		clients:         clients,
		products:        products,
		orders:          orders,
		engine:          engine,
		ordersCommitted: committed,
	}, nil
}

// Routes returns the API router mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.listClients)
		r.Post("/", h.createClient)
		r.Get("/{id}", h.getClient)
		r.Put("/{id}", h.updateClient)
		r.Delete("/{id}", h.deleteClient)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.replaceOrder)
		r.Delete("/{id}", h.deleteOrder)
	})

	r.Post("/import/{kind}", h.importCSV)

	return r
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: msg})
}

// respondError maps domain errors onto HTTP statuses.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr       *order.InsufficientStockError
		productMissing *order.ProductNotFoundError
		clientMissing  *order.ClientNotFoundError
		commitErr      *order.CommitFailedError
	)

	switch {
	case errors.Is(err, order.ErrIncompleteOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrLineIndex):
		respondJSON(w, http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: err.Error()})

	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, errorResponse{
			Code:      http.StatusConflict,
			Message:   err.Error(),
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		})

	case errors.As(err, &productMissing), errors.As(err, &clientMissing):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: http.StatusUnprocessableEntity, Message: err.Error()})

	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: err.Error()})

	case errors.Is(err, client.ErrInUse), errors.Is(err, product.ErrInUse):
		respondJSON(w, http.StatusConflict, errorResponse{Code: http.StatusConflict, Message: err.Error()})

	case errors.As(err, &commitErr):
		zctx.From(r.Context()).Error("Commit failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Code: http.StatusInternalServerError, Message: "order commit failed"})

	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Code: http.StatusInternalServerError, Message: "internal error"})
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}
