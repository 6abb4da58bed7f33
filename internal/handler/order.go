package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
)

const dateLayout = "2006-01-02"

type orderLinePayload struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderPayload struct {
	ClientID int64              `json:"client_id"`
	Date     string             `json:"date"`
	Lines    []orderLinePayload `json:"lines"`
}

type orderLineResponse struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type orderResponse struct {
	ID       int64               `json:"id"`
	ClientID int64               `json:"client_id"`
	Date     string              `json:"date"`
	Total    float64             `json:"total"`
	Lines    []orderLineResponse `json:"lines"`
}

func toOrderResponse(o order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Subtotal:    l.Subtotal.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:       o.ID,
		ClientID: o.ClientID,
		Date:     o.Date.Format(dateLayout),
		Total:    o.Total.InexactFloat64(),
		Lines:    lines,
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []order.Order
		err    error
	)
	if term := r.URL.Query().Get("q"); term != "" {
		orders, err = h.orders.SearchByClientName(r.Context(), term)
	} else {
		orders, err = h.orders.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

// buildDraft assembles a caller-owned draft from the request payload, reading
// each product once so line subtotals capture the price as of now.
func (h *Handler) buildDraft(w http.ResponseWriter, r *http.Request, req orderPayload) *order.Draft {
	d := order.NewDraft()
	d.SetClient(req.ClientID)

	if req.Date != "" {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			badRequest(w, "invalid date, expected YYYY-MM-DD")
			return nil
		}
		d.SetDate(date)
	}

	for _, l := range req.Lines {
		p, err := h.products.GetByID(r.Context(), l.ProductID)
		if err != nil {
			// A line naming a missing product is the same condition whether
			// it is caught here or at commit time.
			if errors.Is(err, product.ErrNotFound) {
				err = &order.ProductNotFoundError{ProductID: l.ProductID}
			}
			respondError(w, r, err)
			return nil
		}
		if err := d.AddLine(*p, l.Quantity); err != nil {
			respondError(w, r, err)
			return nil
		}
	}
	return d
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderPayload
	if !decodeBody(w, r, &req) {
		return
	}

	d := h.buildDraft(w, r, req)
	if d == nil {
		return
	}

	o, err := h.engine.Commit(r.Context(), d)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.ordersCommitted.Add(r.Context(), 1)
	respondJSON(w, http.StatusCreated, toOrderResponse(*o))
}

func (h *Handler) replaceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}

	var req orderPayload
	if !decodeBody(w, r, &req) {
		return
	}

	d := h.buildDraft(w, r, req)
	if d == nil {
		return
	}

	o, err := h.engine.Replace(r.Context(), id, d)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}

	if err := h.engine.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
