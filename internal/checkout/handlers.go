package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/money"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Handler exposes quote, preview and order endpoints.
type Handler struct {
	Svc          *Service
	Money        *money.Formatter
	DefaultLimit int
	MaxLimit     int
}

type placeOrderRequest struct {
	AddressNote string `json:"addressNote" validate:"max=500"`
}

// displayAmounts carries the rounded, localised rendering of a summary.
type displayAmounts struct {
	Currency              string       `json:"currency"`
	Subtotal              money.Amount `json:"subtotal"`
	TotalDiscount         money.Amount `json:"totalDiscount"`
	SubtotalAfterDiscount money.Amount `json:"subtotalAfterDiscount"`
	DeliveryCharge        money.Amount `json:"deliveryCharge"`
	GrandTotal            money.Amount `json:"grandTotal"`
}

func (h *Handler) display(s Summary) *displayAmounts {
	if h.Money == nil {
		return nil
	}
	return &displayAmounts{
		Currency:              h.Money.Code(),
		Subtotal:              h.Money.Amount(s.Subtotal),
		TotalDiscount:         h.Money.Amount(s.TotalDiscount),
		SubtotalAfterDiscount: h.Money.Amount(s.SubtotalAfterDiscount),
		DeliveryCharge:        h.Money.Amount(s.DeliveryCharge),
		GrandTotal:            h.Money.Amount(s.GrandTotal),
	}
}

// Quote handles GET /api/v1/checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	q, err := h.Svc.Quote(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q, "display": h.display(q.Summary)})
}

// Preview handles POST /api/v1/checkout/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in PreviewInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	if in.Tier == "" {
		in.Tier = common.Tier(r.Context())
	}
	q, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q, "display": h.display(q.Summary)})
}

// PlaceOrder handles POST /api/v1/checkout/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req placeOrderRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	order, err := h.Svc.PlaceOrder(r.Context(), userID, req.AddressNote)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order, "display": h.display(order.Summary)})
}

// Orders handles GET /api/v1/orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultLimit, h.MaxLimit)
	p := common.Pagination{Page: page, PerPage: perPage}
	orders, err := h.Svc.Orders(r.Context(), userID, p)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders, "pagination": p})
}

// Order handles GET /api/v1/orders/{id}.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	order, err := h.Svc.Order(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order, "display": h.display(order.Summary)})
}

func writeUnauthorized(w http.ResponseWriter) {
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
}

func writeError(w http.ResponseWriter, err error) {
	var malformed *pricing.MalformedInputError
	switch {
	case errors.As(err, &malformed):
		common.WriteError(w, common.Unprocessable("MALFORMED_INPUT", malformed.Error(), err).WithDetails(map[string]any{
			"kind":   malformed.Kind,
			"index":  malformed.Index,
			"field":  malformed.Field,
			"reason": malformed.Reason,
		}))
	case errors.Is(err, ErrEmptyCart):
		common.WriteError(w, common.Unprocessable("EMPTY_CART", "cart is empty", err))
	case errors.Is(err, ErrBusy):
		common.WriteError(w, common.NewAppError("CHECKOUT_IN_PROGRESS", "another checkout is in progress for this cart", http.StatusConflict, err))
	case errors.Is(err, ErrOrderNotFound):
		common.WriteError(w, common.NotFound("order not found", err))
	case errors.Is(err, cart.ErrInvalidInput):
		common.WriteError(w, common.BadRequest("invalid input", err))
	case errors.Is(err, auth.ErrUserNotFound):
		writeUnauthorized(w)
	default:
		common.WriteError(w, err)
	}
}
