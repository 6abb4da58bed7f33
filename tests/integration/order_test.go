//go:build integration

package integration

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"testing"
)

func TestCommitOrder(t *testing.T) {
	c := createClient(t, "Order Client")
	p := createProduct(t, "Commit Widget", 10.00, 10)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 4}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.ID == 0 {
		t.Fatal("expected non-zero order id")
	}
	if o.ClientID != c.ID {
		t.Errorf("client_id: got %d, want %d", o.ClientID, c.ID)
	}
	if o.Date != "2024-06-01" {
		t.Errorf("date: got %q", o.Date)
	}
	if math.Abs(o.Total-40.0) > 0.001 {
		t.Errorf("total: got %v, want 40", o.Total)
	}
	if len(o.Lines) != 1 || o.Lines[0].ProductName != "Commit Widget" {
		t.Errorf("lines: got %+v", o.Lines)
	}

	if got := getProduct(t, p.ID); got.Stock != 6 {
		t.Errorf("stock after commit: got %d, want 6", got.Stock)
	}
}

func TestCommitOrder_InsufficientStock(t *testing.T) {
	c := createClient(t, "Greedy Client")
	p := createProduct(t, "Scarce Widget", 10.00, 2)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 5}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Requested != 5 || body.Available != 2 {
		t.Errorf("got requested=%d available=%d, want 5/2", body.Requested, body.Available)
	}

	// The failed commit must not touch stock.
	if got := getProduct(t, p.ID); got.Stock != 2 {
		t.Errorf("stock after rejection: got %d, want 2", got.Stock)
	}
}

func TestCommitOrder_MultiLineAllOrNothing(t *testing.T) {
	c := createClient(t, "Multi Client")
	p1 := createProduct(t, "Plentiful Part", 10.00, 100)
	p2 := createProduct(t, "Rare Part", 10.00, 1)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines: []orderLineRequest{
			{ProductID: p1.ID, Quantity: 5},
			{ProductID: p2.ID, Quantity: 3},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	if got := getProduct(t, p1.ID); got.Stock != 100 {
		t.Errorf("first line stock: got %d, want 100", got.Stock)
	}
	if got := getProduct(t, p2.ID); got.Stock != 1 {
		t.Errorf("second line stock: got %d, want 1", got.Stock)
	}
}

func TestCommitOrder_ConcurrentLastUnits(t *testing.T) {
	c := createClient(t, "Racing Client")
	p := createProduct(t, "Contested Widget", 10.00, 5)

	statuses := make([]int, 2)
	bodies := make([]errorResponse, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := doPost(t, "/api/orders", orderRequest{
				ClientID: c.ID,
				Date:     "2024-06-01",
				Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 3}},
			})
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
			if resp.StatusCode == http.StatusConflict {
				bodies[i] = decodeJSON[errorResponse](t, resp)
			}
		}(i)
	}
	wg.Wait()

	var created, conflicted int
	for i, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
			if bodies[i].Requested != 3 || bodies[i].Available != 2 {
				t.Errorf("conflict body: got requested=%d available=%d, want 3/2",
					bodies[i].Requested, bodies[i].Available)
			}
		default:
			t.Errorf("unexpected status %d", s)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("got %d created, %d conflicted, want 1/1", created, conflicted)
	}

	if got := getProduct(t, p.ID); got.Stock != 2 {
		t.Errorf("final stock: got %d, want 2", got.Stock)
	}
}

func TestCommitOrder_UnknownClient(t *testing.T) {
	p := createProduct(t, "Orphan Widget", 10.00, 10)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: 99999999,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 1}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCommitOrder_NoLines(t *testing.T) {
	c := createClient(t, "Empty Handed")

	resp := doPost(t, "/api/orders", orderRequest{ClientID: c.ID, Date: "2024-06-01"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReplaceOrder_AdjustsStock(t *testing.T) {
	c := createClient(t, "Edit Client")
	p := createProduct(t, "Editable Widget", 10.00, 10)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 4}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if got := getProduct(t, p.ID); got.Stock != 6 {
		t.Fatalf("stock after create: got %d, want 6", got.Stock)
	}

	put := doPut(t, fmt.Sprintf("/api/orders/%d", o.ID), orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-02",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 2}},
	})
	defer put.Body.Close()
	if put.StatusCode != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d", put.StatusCode)
	}

	updated := decodeJSON[orderResponse](t, put)
	if updated.ID != o.ID {
		t.Errorf("id changed: got %d, want %d", updated.ID, o.ID)
	}
	if math.Abs(updated.Total-20.0) > 0.001 {
		t.Errorf("total: got %v, want 20", updated.Total)
	}

	// 4 restored, 2 consumed.
	if got := getProduct(t, p.ID); got.Stock != 8 {
		t.Errorf("stock after edit: got %d, want 8", got.Stock)
	}
}

func TestReplaceOrder_GrowsWithinRestoredStock(t *testing.T) {
	c := createClient(t, "Growing Client")
	p := createProduct(t, "Growable Widget", 10.00, 5)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 4}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if got := getProduct(t, p.ID); got.Stock != 1 {
		t.Fatalf("stock after create: got %d, want 1", got.Stock)
	}

	// Only 1 unit is free, but the edit gives back the 4 it holds first.
	put := doPut(t, fmt.Sprintf("/api/orders/%d", o.ID), orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 5}},
	})
	defer put.Body.Close()
	if put.StatusCode != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d", put.StatusCode)
	}

	if got := getProduct(t, p.ID); got.Stock != 0 {
		t.Errorf("stock after growth: got %d, want 0", got.Stock)
	}
}

func TestDeleteOrder_RestoresStock(t *testing.T) {
	c := createClient(t, "Regretful Client")
	p := createProduct(t, "Returned Widget", 10.00, 10)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 4}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	del := doDelete(t, fmt.Sprintf("/api/orders/%d", o.ID))
	defer del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", del.StatusCode)
	}

	if got := getProduct(t, p.ID); got.Stock != 10 {
		t.Errorf("stock after delete: got %d, want 10", got.Stock)
	}

	gone := doGet(t, fmt.Sprintf("/api/orders/%d", o.ID))
	defer gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", gone.StatusCode)
	}
}

func TestSearchOrdersByClientName(t *testing.T) {
	c := createClient(t, "Quicksilver Imports")
	p := createProduct(t, "Search Widget", 10.00, 10)

	resp := doPost(t, "/api/orders", orderRequest{
		ClientID: c.ID,
		Date:     "2024-06-01",
		Lines:    []orderLineRequest{{ProductID: p.ID, Quantity: 1}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	list := doGet(t, "/api/orders?q=quicksilver")
	defer list.Body.Close()
	if list.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, list)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].ClientID != c.ID {
		t.Errorf("client_id: got %d, want %d", orders[0].ClientID, c.ID)
	}
}
