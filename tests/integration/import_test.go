//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestImportClients_MixedValidity(t *testing.T) {
	csv := "ImportCo Alpha,1000,Main St\nImportCo Beta,notanumber,Elm St\n"

	resp := doPostCSV(t, "/api/import/clients", csv)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeJSON[importResponse](t, resp)
	if result.TotalRows != 2 {
		t.Errorf("total_rows: got %d, want 2", result.TotalRows)
	}
	if result.Validated != 1 || result.Created != 1 {
		t.Errorf("validated=%d created=%d, want 1/1", result.Validated, result.Created)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(result.Errors))
	}

	e := result.Errors[0]
	if e.Row != 2 || e.Field != "Capital" || e.Reason != "Invalid number format" {
		t.Errorf("error: got %+v", e)
	}

	// The accepted row is visible through the ordinary API.
	list := doGet(t, "/api/clients?q=ImportCo+Alpha")
	defer list.Body.Close()
	found := decodeJSON[[]clientResponse](t, list)
	if len(found) != 1 {
		t.Fatalf("expected imported client to be listed, got %d", len(found))
	}
}

func TestImportProducts_WithHeader(t *testing.T) {
	csv := "Name,Price,Stock\nImported Widget,9.99,25\n"

	resp := doPostCSV(t, "/api/import/products?header=true", csv)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeJSON[importResponse](t, resp)
	if result.TotalRows != 1 || result.Created != 1 || len(result.Errors) != 0 {
		t.Errorf("got %+v", result)
	}
}

func TestImportOrders_DateValidation(t *testing.T) {
	csv := "2024-01-15\nnot-a-date\n"

	resp := doPostCSV(t, "/api/import/orders", csv)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeJSON[importResponse](t, resp)
	if result.Created != 1 {
		t.Errorf("created: got %d, want 1", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Reason != "Invalid date format. Expected: YYYY-MM-DD" {
		t.Errorf("reason: got %q", result.Errors[0].Reason)
	}
}

func TestImport_UnterminatedQuote(t *testing.T) {
	csv := "QuoteCo One,1000,Main St\n\"QuoteCo Two,2000,Elm St"

	resp := doPostCSV(t, "/api/import/clients", csv)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeJSON[importResponse](t, resp)
	if result.Created != 1 {
		t.Errorf("created: got %d, want 1", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Row != 2 || result.Errors[0].Reason != "Unterminated quoted field" {
		t.Errorf("error: got %+v", result.Errors[0])
	}
}

func TestImport_UnknownKind(t *testing.T) {
	resp := doPostCSV(t, "/api/import/widgets", "x\n")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
