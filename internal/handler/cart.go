package handler

import (
	"net/http"

	"github.com/velano/storefront/internal/domain/cart"
)

type cartLineResponse struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total float64            `json:"total"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{
		Lines: make([]cartLineResponse, len(c.Lines)),
		Total: c.Total().InexactFloat64(),
	}
	for i, l := range c.Lines {
		resp.Lines[i] = cartLineResponse{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			LineTotal: l.LineTotal().InexactFloat64(),
		}
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, p Principal) {
	c, err := h.carts.Get(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// addCartItem merges the requested quantity into the existing line.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, p Principal) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.carts.AddLine(r.Context(), p.UserID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// setCartItem sets an absolute quantity; zero removes the line.
func (h *Handler) setCartItem(w http.ResponseWriter, r *http.Request, p Principal) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.carts.SetLineQuantity(r.Context(), p.UserID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, p Principal) {
	if err := h.carts.Clear(r.Context(), p.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
