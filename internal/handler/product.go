package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/product"
)

type productPayload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type productResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price.InexactFloat64(),
		Stock: p.Stock,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if term := r.URL.Query().Get("q"); term != "" {
		products, err = h.products.Search(r.Context(), term)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productPayload
	if !decodeBody(w, r, &req) {
		return
	}

	p := product.Product{
		Name:  req.Name,
		Price: decimal.NewFromFloat(req.Price),
		Stock: req.Stock,
	}
	if err := p.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid product id")
		return
	}

	var req productPayload
	if !decodeBody(w, r, &req) {
		return
	}

	p := product.Product{
		ID:    id,
		Name:  req.Name,
		Price: decimal.NewFromFloat(req.Price),
		Stock: req.Stock,
	}
	if err := p.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.products.Update(r.Context(), &p); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid product id")
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
