//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_EmptyForNewSession(t *testing.T) {
	token := loginDemo(t)
	clearCart(t, token)

	resp := doJSON(t, http.MethodGet, "/api/cart", nil, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if len(c.Lines) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(c.Lines))
	}
	if c.Total != 0 {
		t.Errorf("total: got %v, want 0", c.Total)
	}
}

func TestCart_AddMergesQuantity(t *testing.T) {
	token := loginDemo(t)
	clearCart(t, token)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 1,
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first add: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 1,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second add: expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if len(c.Lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(c.Lines))
	}
	if c.Lines[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", c.Lines[0].Quantity)
	}
	if c.Lines[0].UnitPrice != 6.9 {
		t.Errorf("unit price: got %v, want 6.9", c.Lines[0].UnitPrice)
	}
	if c.Total != 13.8 {
		t.Errorf("total: got %v, want 13.8", c.Total)
	}

	clearCart(t, token)
}

func TestCart_VariantPricing(t *testing.T) {
	token := loginDemo(t)
	clearCart(t, token)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "ceramic-mug", VariantID: "ceramic-mug-400", Quantity: 1,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if len(c.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(c.Lines))
	}
	if c.Lines[0].VariantID != "ceramic-mug-400" {
		t.Errorf("variant: got %q", c.Lines[0].VariantID)
	}
	// The 400ml variant carries its own price.
	if c.Lines[0].UnitPrice != 16.5 {
		t.Errorf("unit price: got %v, want 16.5", c.Lines[0].UnitPrice)
	}

	clearCart(t, token)
}

func TestCart_DiscountedUnitPrice(t *testing.T) {
	token := loginDemo(t)
	clearCart(t, token)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "cold-brew-bottle", Quantity: 1,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	// 32.00 less 25% = 24.00 snapshot at add time.
	if c.Lines[0].UnitPrice != 24 {
		t.Errorf("unit price: got %v, want 24", c.Lines[0].UnitPrice)
	}

	clearCart(t, token)
}

func TestCart_UnknownProduct(t *testing.T) {
	token := loginDemo(t)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "does-not-exist", Quantity: 1,
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCart_InvalidQuantity(t *testing.T) {
	token := loginDemo(t)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 0,
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCart_SetQuantity(t *testing.T) {
	token := loginDemo(t)
	clearCart(t, token)

	resp := doJSON(t, http.MethodPost, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 5,
	}, token)
	resp.Body.Close()

	// Absolute update down to 2.
	resp = doJSON(t, http.MethodPatch, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 2,
	}, token)
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if c.Lines[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", c.Lines[0].Quantity)
	}

	// Zero removes the line.
	resp = doJSON(t, http.MethodPatch, "/api/cart/items", cartItemRequest{
		ProductID: "filter-papers-100", Quantity: 0,
	}, token)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(c.Lines) != 0 {
		t.Errorf("expected empty cart after zero quantity, got %d lines", len(c.Lines))
	}
}
