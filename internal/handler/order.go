package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/order"
	"github.com/velano/storefront/internal/domain/user"
)

type orderLineResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	VariantID   string  `json:"variant_id,omitempty"`
	VariantName string  `json:"variant_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	Lines           []orderLineResponse `json:"lines"`
	Subtotal        float64             `json:"subtotal"`
	Tax             float64             `json:"tax"`
	Shipping        float64             `json:"shipping"`
	Discount        float64             `json:"discount"`
	Total           float64             `json:"total"`
	ShippingAddress user.Address        `json:"shipping_address"`
	BillingAddress  *user.Address       `json:"billing_address,omitempty"`
	PaymentMethod   string              `json:"payment_method"`
	Paid            bool                `json:"paid"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		Lines:           make([]orderLineResponse, len(o.Lines)),
		Subtotal:        o.Subtotal.InexactFloat64(),
		Tax:             o.Tax.InexactFloat64(),
		Shipping:        o.Shipping.InexactFloat64(),
		Discount:        o.Discount.InexactFloat64(),
		Total:           o.Total.InexactFloat64(),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentMethod:   string(o.Payment.Method),
		Paid:            o.Payment.Paid,
		PaidAt:          o.Payment.PaidAt,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
	}
	for i, l := range o.Lines {
		resp.Lines[i] = orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			VariantID:   l.VariantID,
			VariantName: l.VariantName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			LineTotal:   l.LineTotal.InexactFloat64(),
		}
	}
	return resp
}

type placeOrderRequest struct {
	ShippingAddress *user.Address    `json:"shipping_address,omitempty"`
	BillingAddress  *user.Address    `json:"billing_address,omitempty"`
	PaymentMethod   string           `json:"payment_method"`
	Notes           string           `json:"notes,omitempty"`
	Discount        *decimal.Decimal `json:"discount,omitempty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, p Principal) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method := order.PaymentMethod(req.PaymentMethod)
	if method != order.MethodCOD && method != order.MethodCard {
		writeError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          p.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   method,
		Notes:           req.Notes,
		Discount:        req.Discount,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, p Principal) {
	orders, err := h.orders.ListForUser(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, p Principal) {
	o, err := h.orders.Get(r.Context(), order.Actor{UserID: p.UserID, Admin: p.Admin()}, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, p Principal) {
	o, err := h.orders.CancelOrder(r.Context(), order.Actor{UserID: p.UserID, Admin: p.Admin()}, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, p Principal) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.AdvanceStatus(r.Context(),
		order.Actor{UserID: p.UserID, Admin: p.Admin()},
		r.PathValue("id"),
		order.Status(req.Status),
	)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
