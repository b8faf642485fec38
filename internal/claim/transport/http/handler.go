package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"offerhub/internal/api/dto"
	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/claim/service"
	"offerhub/pkg/middleware"
)

var errNoBusiness = errors.New("user does not own a business")

type BusinessRepository interface {
	GetByOwner(ctx context.Context, ownerUserID string) (*business.Business, error)
}

type Handler struct {
	Claims     *service.Service
	Verifier   *service.Verifier
	History    *service.History
	Businesses BusinessRepository
	Log        *logrus.Entry
}

func NewHandler(claims *service.Service, verifier *service.Verifier, history *service.History,
	businesses BusinessRepository, log *logrus.Logger) *Handler {
	return &Handler{
		Claims:     claims,
		Verifier:   verifier,
		History:    history,
		Businesses: businesses,
		Log:        log.WithField("component", "claim_handler"),
	}
}

// Routes вешает ручки на уже аутентифицированный роутер
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/offers/{offerID}/claim", h.Claim)
	r.Get("/api/offers/{offerID}/claim-status", h.Status)
	r.Get("/api/claims", h.ListMine)
	r.Get("/api/claims/{token}/code", h.Code)

	r.Route("/api/business/redeem", func(r chi.Router) {
		r.Post("/verify", h.Verify)
		r.Post("/complete", h.Complete)
		r.Get("/history", h.RedemptionHistory)
		r.Get("/stats", h.Stats)
	})
}

// errorBody - ответ на ошибку claim'а
type errorBody struct {
	Error    string     `json:"error"`
	Code     string     `json:"error_code"`
	Boundary *time.Time `json:"boundary,omitempty"`
}

type verifyResponse struct {
	IsValid         bool                  `json:"is_valid"`
	ClaimDetails    *service.Verification `json:"claim_details,omitempty"`
	ErrorCode       string                `json:"error_code,omitempty"`
	Error           string                `json:"error,omitempty"`
	RedeemedAt      *time.Time            `json:"redeemed_at,omitempty"`
	RedemptionNotes string                `json:"redemption_notes,omitempty"`
	Boundary        *time.Time            `json:"boundary,omitempty"`
}

type completeResponse struct {
	Success         bool       `json:"success"`
	ClaimID         string     `json:"claim_id,omitempty"`
	RedeemedAt      *time.Time `json:"redeemed_at,omitempty"`
	RedemptionNotes string     `json:"redemption_notes,omitempty"`
	ErrorCode       string     `json:"error_code,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req dto.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid JSON", claim.ErrValidation))
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, req.ClaimType)
		return
	}

	res, err := h.Claims.Claim(r.Context(), service.Request{
		OfferID:     chi.URLParam(r, "offerID"),
		UserID:      userID,
		Type:        claim.Type(req.ClaimType),
		RedirectURL: req.RedirectURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Display)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	st, err := h.Claims.Status(r.Context(), chi.URLParam(r, "offerID"), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	q := r.URL.Query()

	f := service.ListFilter{Type: claim.Type(q.Get("claim_type"))}
	var err error
	if f.Redeemed, err = optionalBool(q.Get("redeemed")); err != nil {
		middleware.HandleValidationError(w, err, "redeemed", q.Get("redeemed"))
		return
	}
	if f.Page, err = optionalInt(q.Get("page")); err != nil {
		middleware.HandleValidationError(w, err, "page", q.Get("page"))
		return
	}
	if f.Size, err = optionalInt(q.Get("size")); err != nil {
		middleware.HandleValidationError(w, err, "size", q.Get("size"))
		return
	}

	list, err := h.Claims.ListMine(r.Context(), userID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Code(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	d, err := h.Claims.Code(r.Context(), userID, chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Verify отвечает 200 и на отказ: is_valid=false с кодом причины.
// Ошибкой HTTP считаются только кривой запрос и сбой сервера
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}

	var req dto.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid JSON", claim.ErrValidation))
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, "")
		return
	}

	v, err := h.Verifier.Verify(r.Context(), req.Identifier, service.IdentifierKind(req.IdentifierKind), b.ID)
	if err == nil {
		writeJSON(w, http.StatusOK, verifyResponse{IsValid: true, ClaimDetails: v})
		return
	}

	code := claim.Code(err)
	switch code {
	case "NOT_FOUND", "WRONG_BUSINESS", "ALREADY_REDEEMED", "OFFER_EXPIRED":
	default:
		h.fail(w, r, err)
		return
	}

	resp := verifyResponse{ErrorCode: code, Error: err.Error()}
	var redeemed *claim.RedeemedError
	if errors.As(err, &redeemed) {
		resp.RedeemedAt = &redeemed.At
		resp.RedemptionNotes = redeemed.Notes
	}
	var boundary *claim.BoundaryError
	if errors.As(err, &boundary) {
		resp.Boundary = &boundary.At
	}
	writeJSON(w, http.StatusOK, resp)
}

// Complete: повторное погашение - не ошибка HTTP, а success=false с датой первого
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}

	var req dto.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid JSON", claim.ErrValidation))
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		field, msg := dto.FieldError(err)
		middleware.HandleValidationError(w, msg, field, "")
		return
	}

	c, err := h.Verifier.Redeem(r.Context(), req.Token, b.ID, req.Notes)
	if err == nil {
		writeJSON(w, http.StatusOK, completeResponse{
			Success:         true,
			ClaimID:         c.Token,
			RedeemedAt:      c.RedeemedAt,
			RedemptionNotes: deref(c.RedemptionNotes),
		})
		return
	}

	var redeemed *claim.RedeemedError
	if !errors.As(err, &redeemed) {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{
		ErrorCode:       claim.Code(err),
		Error:           err.Error(),
		RedeemedAt:      &redeemed.At,
		RedemptionNotes: redeemed.Notes,
	})
}

func (h *Handler) RedemptionHistory(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	f := service.HistoryFilter{}
	f.OfferID = q.Get("offer_id")
	redeemedOnly, err := optionalBool(q.Get("redeemed_only"))
	if err != nil {
		middleware.HandleValidationError(w, err, "redeemed_only", q.Get("redeemed_only"))
		return
	}
	f.RedeemedOnly = redeemedOnly != nil && *redeemedOnly
	if f.From, err = optionalTime(q.Get("from"), false); err != nil {
		middleware.HandleValidationError(w, err, "from", q.Get("from"))
		return
	}
	if f.To, err = optionalTime(q.Get("to"), true); err != nil {
		middleware.HandleValidationError(w, err, "to", q.Get("to"))
		return
	}
	if f.Page, err = optionalInt(q.Get("page")); err != nil {
		middleware.HandleValidationError(w, err, "page", q.Get("page"))
		return
	}
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil {
		middleware.HandleValidationError(w, err, "limit", q.Get("limit"))
		return
	}

	page, err := h.History.List(r.Context(), b.ID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}

	days, err := optionalInt(r.URL.Query().Get("days"))
	if err != nil {
		middleware.HandleValidationError(w, err, "days", r.URL.Query().Get("days"))
		return
	}

	st, err := h.History.Stats(r.Context(), b.ID, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// business находит бизнес текущего пользователя; мерчантские ручки без него недоступны
func (h *Handler) business(w http.ResponseWriter, r *http.Request) (*business.Business, bool) {
	userID, _ := middleware.UserID(r.Context())
	b, err := h.Businesses.GetByOwner(r.Context(), userID)
	if errors.Is(err, business.ErrNotFound) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: errNoBusiness.Error(), Code: "FORBIDDEN"})
		return nil, false
	}
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return b, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := claim.Code(err)
	status := statusFor(code)
	body := errorBody{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("claim request failed")
		body.Error = "internal error"
	}
	var boundary *claim.BoundaryError
	if errors.As(err, &boundary) {
		body.Boundary = &boundary.At
	}
	writeJSON(w, status, body)
}

func statusFor(code string) int {
	switch code {
	case "VALIDATION_ERROR", "INVALID_IDENTIFIER", "NOT_STARTED", "EXPIRED", "OFFER_EXPIRED":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "WRONG_BUSINESS":
		return http.StatusForbidden
	case "CAPACITY_EXHAUSTED", "ALREADY_CLAIMED", "ALREADY_REDEEMED":
		return http.StatusConflict
	case "TOKEN_GENERATION_EXHAUSTED":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func optionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.New("must be true or false")
	}
	return &v, nil
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return v, nil
}

// optionalTime принимает RFC3339 или дату; дата в "to" означает конец дня
func optionalTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errors.New("must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
