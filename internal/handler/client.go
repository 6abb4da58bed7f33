package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
)

type clientPayload struct {
	Name    string  `json:"name"`
	Capital float64 `json:"capital"`
	Address string  `json:"address"`
}

type clientResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Capital float64 `json:"capital"`
	Address string  `json:"address"`
}

func toClientResponse(c client.Client) clientResponse {
	return clientResponse{
		ID:      c.ID,
		Name:    c.Name,
		Capital: c.Capital.InexactFloat64(),
		Address: c.Address,
	}
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	var (
		clients []client.Client
		err     error
	)
	if term := r.URL.Query().Get("q"); term != "" {
		clients, err = h.clients.Search(r.Context(), term)
	} else {
		clients, err = h.clients.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]clientResponse, len(clients))
	for i, c := range clients {
		out[i] = toClientResponse(c)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid client id")
		return
	}

	c, err := h.clients.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toClientResponse(*c))
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientPayload
	if !decodeBody(w, r, &req) {
		return
	}

	c := client.Client{
		Name:    req.Name,
		Capital: decimal.NewFromFloat(req.Capital),
		Address: req.Address,
	}
	if err := c.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.clients.Create(r.Context(), &c); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toClientResponse(c))
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid client id")
		return
	}

	var req clientPayload
	if !decodeBody(w, r, &req) {
		return
	}

	c := client.Client{
		ID:      id,
		Name:    req.Name,
		Capital: decimal.NewFromFloat(req.Capital),
		Address: req.Address,
	}
	if err := c.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.clients.Update(r.Context(), &c); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toClientResponse(c))
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid client id")
		return
	}

	if err := h.clients.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
