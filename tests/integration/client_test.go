//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestClientCRUD(t *testing.T) {
	created := createClient(t, "CRUD Trading")
	if created.ID == 0 {
		t.Fatal("expected non-zero client id")
	}

	resp := doGet(t, fmt.Sprintf("/api/clients/%d", created.ID))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeJSON[clientResponse](t, resp)
	if got.Name != "CRUD Trading" {
		t.Errorf("name: got %q", got.Name)
	}
	if got.Capital != 1000 {
		t.Errorf("capital: got %v, want 1000", got.Capital)
	}

	update := doPut(t, fmt.Sprintf("/api/clients/%d", created.ID), clientRequest{
		Name: "CRUD Trading Ltd", Capital: 2000, Address: "2 New St",
	})
	defer update.Body.Close()
	if update.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", update.StatusCode)
	}

	del := doDelete(t, fmt.Sprintf("/api/clients/%d", created.ID))
	defer del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", del.StatusCode)
	}

	gone := doGet(t, fmt.Sprintf("/api/clients/%d", created.ID))
	defer gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", gone.StatusCode)
	}
}

func TestClientValidation(t *testing.T) {
	tests := []struct {
		name string
		body clientRequest
	}{
		{"empty name", clientRequest{Name: "", Capital: 100, Address: "x"}},
		{"negative capital", clientRequest{Name: "Acme", Capital: -1, Address: "x"}},
		{"empty address", clientRequest{Name: "Acme", Capital: 100, Address: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPost(t, "/api/clients", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestClientSearch(t *testing.T) {
	createClient(t, "Zephyr Wholesale")

	resp := doGet(t, "/api/clients?q=zephyr")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	found := decodeJSON[[]clientResponse](t, resp)
	if len(found) == 0 {
		t.Fatal("expected at least one match for zephyr")
	}
	for _, c := range found {
		if c.Name != "Zephyr Wholesale" {
			t.Errorf("unexpected match %q", c.Name)
		}
	}
}

func TestClientDelete_WithOrderHistory(t *testing.T) {
	c := createClient(t, "Sticky Client")
	p := createProduct(t, "Sticky Product", 5.00, 50)

	order := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 1}},
	})
	defer order.Body.Close()
	if order.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", order.StatusCode)
	}

	// A client with order history cannot be removed.
	del := doDelete(t, fmt.Sprintf("/api/clients/%d", c.ID))
	defer del.Body.Close()
	if del.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", del.StatusCode)
	}
}
