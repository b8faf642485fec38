package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"offerhub/internal/api/dto"
	"offerhub/internal/discount"
	"offerhub/internal/offer"
	"offerhub/internal/offer/service"
	"offerhub/pkg/middleware"
)

type Handler struct {
	Service *service.Service
	Log     *logrus.Entry
	Now     func() time.Time
}

func NewHandler(service *service.Service, log *logrus.Logger) *Handler {
	return &Handler{
		Service: service,
		Log:     log.WithField("component", "offer_handler"),
		Now:     time.Now,
	}
}

// Routes вешает ручки на уже аутентифицированный роутер
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/offers", h.Create)
	r.Get("/api/offers/{offerID}", h.Get)
	r.Patch("/api/offers/{offerID}/status", h.SetStatus)
	r.Post("/api/offers/{offerID}/calculate", h.Calculate)
	r.Get("/api/business/offers", h.ListMine)
}

// offerResponse - оффер вместе с параметрами скидки, развернутыми в плоский JSON
type offerResponse struct {
	*offer.Offer
	discount.Params
	DisplayText string `json:"display_text"`
	Status      string `json:"status"`
}

func (h *Handler) view(o *offer.Offer) offerResponse {
	return offerResponse{
		Offer:       o,
		Params:      discount.ToParams(o.Discount),
		DisplayText: o.DisplayText(),
		Status:      o.Phase(h.Now()).String(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req dto.CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, "")
		return
	}

	o, err := h.Service.Create(r.Context(), userID, service.Input{
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		Title:         req.Title,
		Description:   req.Description,
		Discount:      req.Params,
		OriginalPrice: req.OriginalPrice,
		StartDate:     req.StartDate,
		ExpiryDate:    req.ExpiryDate,
		MaxClaims:     req.MaxClaims,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.view(o))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Get(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(o))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	offers, err := h.Service.ListByBusiness(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		items = append(items, h.view(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"offers": items,
		"total":  len(items),
	})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req dto.UpdateOfferStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, "")
		return
	}

	o, err := h.Service.SetActive(r.Context(), userID, chi.URLParam(r, "offerID"), *req.IsActive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(o))
}

// Calculate принимает пустое тело: тогда считаем одну единицу по цене оффера
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON")
			return
		}
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, "")
		return
	}

	offerID := chi.URLParam(r, "offerID")
	res, err := h.Service.Calculate(r.Context(), offerID, discount.Purchase{
		Quantity:  req.Quantity,
		UnitPrice: req.ItemPrice,
		CartTotal: req.CartTotal,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		OfferID string `json:"offer_id"`
		*discount.Result
	}{offerID, res})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, offer.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, offer.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, offer.ErrNoBusiness), errors.Is(err, offer.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		h.Log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("offer request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, middleware.ErrorResponse{Error: msg, Code: code})
}
