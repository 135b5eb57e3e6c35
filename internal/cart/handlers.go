package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler wires cart services to HTTP. All routes require an authenticated buyer.
type Handler struct {
	Svc *Service
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"min=1,max=100000"`
}

type setQuantityRequest struct {
	Qty int `json:"qty" validate:"max=100000"`
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	c, err := h.Svc.Get(r.Context(), userID)
	respond(w, http.StatusOK, c, err)
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.AddItem(r.Context(), userID, req.ProductID, req.Qty)
	respond(w, http.StatusCreated, c, err)
}

// Decrement handles POST /api/v1/cart/items/{itemID}/decrement.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	c, err := h.Svc.Decrement(r.Context(), userID, chi.URLParam(r, "itemID"))
	respond(w, http.StatusOK, c, err)
}

// SetQuantity handles PATCH /api/v1/cart/items/{itemID}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req setQuantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetQuantity(r.Context(), userID, chi.URLParam(r, "itemID"), req.Qty)
	respond(w, http.StatusOK, c, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemID"))
	respond(w, http.StatusOK, c, err)
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	if err := h.Svc.Clear(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respond(w http.ResponseWriter, status int, c Cart, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, status, map[string]any{"data": c})
}

func writeUnauthorized(w http.ResponseWriter) {
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("cart item not found", err))
	case errors.Is(err, ErrProductUnavailable):
		common.WriteError(w, common.Unprocessable("PRODUCT_UNAVAILABLE", "product is not available", err))
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.BadRequest(err.Error(), err))
	default:
		common.WriteError(w, err)
	}
}
