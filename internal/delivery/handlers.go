package delivery

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes delivery rule endpoints.
type Handler struct {
	Svc *Service
}

// Active handles GET /api/v1/delivery-rules, the public active ruleset.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Svc.List(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// List handles GET /api/v1/admin/delivery-rules including disabled rules.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Svc.List(r.Context(), true)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// Create handles POST /api/v1/admin/delivery-rules.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in RuleInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	rule, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rule})
}

// Update handles PUT /api/v1/admin/delivery-rules/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in RuleInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	rule, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// SetActive handles PATCH /api/v1/admin/delivery-rules/{id}/active.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"isActive" validate:"required"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	rule, err := h.Svc.SetActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// Preview handles GET /api/v1/admin/delivery-rules/preview?amount=.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		common.WriteError(w, common.BadRequest("amount must be a decimal number", err))
		return
	}
	res, err := h.Svc.Preview(r.Context(), amount)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("delivery rule not found", err))
	case errors.Is(err, ErrInvalidRule):
		common.WriteError(w, common.BadRequest(err.Error(), err))
	default:
		common.WriteError(w, err)
	}
}
