package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/importer"
)

type importErrorResponse struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// importResponse reports both phases of a bulk import: per-row validation and
// the subsequent per-record create attempts. A create failure does not stop
// the remaining records.
type importResponse struct {
	TotalRows      int                   `json:"total_rows"`
	Validated      int                   `json:"validated"`
	Created        int                   `json:"created"`
	Errors         []importErrorResponse `json:"errors"`
	CreateFailures []string              `json:"create_failures,omitempty"`
}

func toImportErrors(errs []importer.RowError) []importErrorResponse {
	out := make([]importErrorResponse, len(errs))
	for i, e := range errs {
		out[i] = importErrorResponse{Row: e.Row, Field: e.Field, Value: e.Value, Reason: e.Reason}
	}
	return out
}

// importCSV validates the request body as CSV for the given record kind, then
// hands each accepted record to the ordinary create operation.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	header := r.URL.Query().Get("header") == "true"
	ctx := r.Context()

	resp := importResponse{Errors: []importErrorResponse{}}

	switch kind := chi.URLParam(r, "kind"); kind {
	case "clients":
		result := importer.Clients(r.Body, header)
		resp.TotalRows = result.TotalRows
		resp.Validated = result.SuccessCount()
		resp.Errors = toImportErrors(result.Errors)
		for i := range result.Records {
			if err := h.clients.Create(ctx, &result.Records[i]); err != nil {
				resp.CreateFailures = append(resp.CreateFailures, err.Error())
				continue
			}
			resp.Created++
		}

	case "products":
		result := importer.Products(r.Body, header)
		resp.TotalRows = result.TotalRows
		resp.Validated = result.SuccessCount()
		resp.Errors = toImportErrors(result.Errors)
		for i := range result.Records {
			if err := h.products.Create(ctx, &result.Records[i]); err != nil {
				resp.CreateFailures = append(resp.CreateFailures, err.Error())
				continue
			}
			resp.Created++
		}

	case "orders":
		// Imported orders carry only a date and no lines, so they go through
		// plain creation, not the commit engine.
		result := importer.OrderDates(r.Body, header)
		resp.TotalRows = result.TotalRows
		resp.Validated = result.SuccessCount()
		resp.Errors = toImportErrors(result.Errors)
		for _, date := range result.Records {
			o := order.Order{Date: date}
			if err := h.orders.Create(ctx, &o); err != nil {
				resp.CreateFailures = append(resp.CreateFailures, err.Error())
				continue
			}
			resp.Created++
		}

	default:
		badRequest(w, "unknown import kind: "+kind)
		return
	}

	zctx.From(ctx).Info("Import finished",
		zap.Int("total_rows", resp.TotalRows),
		zap.Int("validated", resp.Validated),
		zap.Int("created", resp.Created),
		zap.Int("errors", len(resp.Errors)),
	)
	respondJSON(w, http.StatusOK, resp)
}
