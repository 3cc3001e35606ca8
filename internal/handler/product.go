package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/catalog"
)

type variantResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Price       float64           `json:"price"`
	FinalPrice  float64           `json:"final_price"`
	DiscountPct float64           `json:"discount_pct,omitempty"`
	Stock       int               `json:"stock"`
	Variants    []variantResponse `json:"variants,omitempty"`
}

func toProductResponse(p *catalog.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.InexactFloat64(),
		FinalPrice:  p.FinalPrice().InexactFloat64(),
		DiscountPct: p.DiscountPct.InexactFloat64(),
		Stock:       p.Stock,
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		resp.Variants = append(resp.Variants, variantResponse{
			ID:    v.ID,
			Name:  v.Name,
			Price: catalog.UnitPrice(p, v).InexactFloat64(),
			Stock: v.Stock,
		})
	}
	return resp
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = toProductResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type createVariantRequest struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	Stock         int              `json:"stock"`
}

type createProductRequest struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Price       decimal.Decimal        `json:"price"`
	DiscountPct decimal.Decimal        `json:"discount_pct"`
	Stock       int                    `json:"stock"`
	Variants    []createVariantRequest `json:"variants,omitempty"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request, _ Principal) {
	var req createProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "name and a non-negative price are required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	p := &catalog.Product{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		DiscountPct: req.DiscountPct,
		Stock:       req.Stock,
	}
	for _, v := range req.Variants {
		id := v.ID
		if id == "" {
			id = uuid.New().String()
		}
		p.Variants = append(p.Variants, catalog.Variant{
			ID:            id,
			Name:          v.Name,
			PriceOverride: v.PriceOverride,
			Stock:         v.Stock,
		})
	}
	// With variants, product-level stock is the aggregate.
	if len(p.Variants) > 0 {
		p.Stock = 0
		for _, v := range p.Variants {
			p.Stock += v.Stock
		}
	}

	if err := h.products.Create(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// deleteProduct removes a product and then prunes every cart line that
// referenced it. The pruning is the cascade callback of the cart component:
// it runs after the committed deletion and is idempotent.
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request, _ Principal) {
	id := r.PathValue("id")
	if err := h.products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.carts.CleanupAfterCatalogChange(r.Context(), id, ""); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, rev := range reviews {
		resp[i] = reviewResponse{
			ID:        rev.ID,
			ProductID: rev.ProductID,
			UserID:    rev.UserID,
			Rating:    rev.Rating,
			Comment:   rev.Comment,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request, p Principal) {
	var req createReviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, r, catalog.ErrInvalidRating)
		return
	}

	rev := &catalog.Review{
		ID:        uuid.New().String(),
		ProductID: r.PathValue("id"),
		UserID:    p.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.reviews.Create(r.Context(), rev); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reviewResponse{
		ID:        rev.ID,
		ProductID: rev.ProductID,
		UserID:    rev.UserID,
		Rating:    rev.Rating,
		Comment:   rev.Comment,
	})
}
