package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerhub/internal/business"
	"offerhub/internal/claim/service"
	"offerhub/internal/discount"
	"offerhub/internal/offer"
	"offerhub/internal/redemptioncode"
	"offerhub/internal/storage/memory"
	"offerhub/internal/token"
	"offerhub/internal/user"
	"offerhub/pkg/middleware"
)

const (
	owner    = "owner-cafe"
	stranger = "owner-bakery"
	customer = "user-ada"
)

type env struct {
	router http.Handler
	store  *memory.Store
	now    time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memory.New()
	st.PutBusiness(&business.Business{ID: "biz-cafe", OwnerUserID: owner, Name: "Corner Cafe"})
	st.PutBusiness(&business.Business{ID: "biz-bakery", OwnerUserID: stranger, Name: "Bakery"})
	st.PutUser(&user.User{ID: customer, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"})

	e := &env{store: st, now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }

	claims := service.NewService(st.Offers(), st.Claims(), st.Businesses(), token.NewGenerator(),
		redemptioncode.NewEncoder("https://offers.example.com", 64), log, token.DefaultMaxAttempts)
	claims.Now = clock
	verifier := service.NewVerifier(st.Offers(), st.Claims(), st.Businesses(), st.Users(), log)
	verifier.Now = clock
	history := service.NewHistory(st.Offers(), st.Claims(), st.Users(), log)
	history.Now = clock

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Test-User"); id != "" {
				req = req.WithContext(middleware.WithUserID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHandler(claims, verifier, history, st.Businesses(), log).Routes(r)
	e.router = r
	return e
}

func (e *env) addOffer(t *testing.T, mutate func(o *offer.Offer)) *offer.Offer {
	t.Helper()
	o := &offer.Offer{
		ID:            "offer-latte",
		BusinessID:    "biz-cafe",
		Title:         "20% off Latte",
		Discount:      discount.Percentage{Percent: decimal.NewFromInt(20)},
		OriginalPrice: decimal.RequireFromString("15.99"),
		StartDate:     e.now.Add(-24 * time.Hour),
		ExpiryDate:    e.now.Add(24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(o)
	}
	require.NoError(t, e.store.Offers().Create(context.Background(), o))
	return o
}

func (e *env) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (e *env) claim(t *testing.T, offerID, claimType string) string {
	t.Helper()
	rec, body := e.do(t, http.MethodPost, "/api/offers/"+offerID+"/claim", customer, `{"claim_type":"`+claimType+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["claim_id"].(string)
}

func TestClaimInStore(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)

	rec, body := e.do(t, http.MethodPost, "/api/offers/"+o.ID+"/claim", customer, `{"claim_type":"in_store"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tok := body["claim_id"].(string)
	assert.True(t, token.ValidateFormat(tok))
	assert.Equal(t, "in_store", body["claim_type"])
	assert.Equal(t, "https://offers.example.com/verify/claim/"+tok, body["verification_url"])
	assert.Contains(t, body["encoded_payload"], "data:image/png;base64,")
	assert.Contains(t, body["manual_entry_text"], tok)
	assert.NotContains(t, body, "redirect_url")
}

func TestClaimOnlineUsesExplicitRedirect(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)

	rec, body := e.do(t, http.MethodPost, "/api/offers/"+o.ID+"/claim", customer,
		`{"claim_type":"online","redirect_url":"https://cafe.example/order"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://cafe.example/order", body["redirect_url"])
	assert.NotContains(t, body, "encoded_payload")
}

func TestClaimErrors(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)
	future := e.addOffer(t, func(o *offer.Offer) {
		o.ID = "offer-future"
		o.StartDate = e.now.Add(time.Hour)
	})

	rec, body := e.do(t, http.MethodPost, "/api/offers/"+o.ID+"/claim", customer, `{"claim_type":"mail"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "claim_type", body["field"])

	rec, body = e.do(t, http.MethodPost, "/api/offers/missing/claim", customer, `{"claim_type":"online"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["error_code"])

	rec, body = e.do(t, http.MethodPost, "/api/offers/"+future.ID+"/claim", customer, `{"claim_type":"online"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_STARTED", body["error_code"])
	assert.Equal(t, future.StartDate.Format(time.RFC3339), body["boundary"])

	e.claim(t, o.ID, "online")
	rec, body = e.do(t, http.MethodPost, "/api/offers/"+o.ID+"/claim", customer, `{"claim_type":"in_store"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_CLAIMED", body["error_code"])
}

func TestClaimStatusAndList(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)

	rec, body := e.do(t, http.MethodGet, "/api/offers/"+o.ID+"/claim-status", customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["can_claim"])
	assert.Equal(t, false, body["is_claimed"])

	tok := e.claim(t, o.ID, "in_store")

	rec, body = e.do(t, http.MethodGet, "/api/offers/"+o.ID+"/claim-status", customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["is_claimed"])
	assert.Equal(t, false, body["can_claim"])

	rec, body = e.do(t, http.MethodGet, "/api/claims?claim_type=in_store&redeemed=false", customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])
	items := body["claimed_offers"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "20% off Latte", items[0].(map[string]interface{})["offer_title"])

	rec, _ = e.do(t, http.MethodGet, "/api/claims?redeemed=maybe", customer, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = e.do(t, http.MethodGet, "/api/claims/"+tok+"/code", customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tok, body["claim_id"])

	rec, _ = e.do(t, http.MethodGet, "/api/claims/"+tok+"/code", "someone-else", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyAndComplete(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)
	tok := e.claim(t, o.ID, "in_store")

	scan := `{"identifier":"https://offers.example.com/verify/claim/` + tok + `","identifier_kind":"scan"}`
	rec, body := e.do(t, http.MethodPost, "/api/business/redeem/verify", owner, scan)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["is_valid"])
	details := body["claim_details"].(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", details["customer_name"])
	assert.Equal(t, "Corner Cafe", details["business_name"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/verify", stranger, `{"identifier":"`+tok+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["is_valid"])
	assert.Equal(t, "WRONG_BUSINESS", body["error_code"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/complete", owner, `{"token":"`+tok+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Redeemed by Corner Cafe", body["redemption_notes"])
	firstAt := body["redeemed_at"]

	e.now = e.now.Add(time.Minute)
	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/complete", owner, `{"token":"`+tok+`","notes":"again"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "ALREADY_REDEEMED", body["error_code"])
	assert.Equal(t, firstAt, body["redeemed_at"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/verify", owner, `{"identifier":"`+strings.ToLower(tok)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALREADY_REDEEMED", body["error_code"])
	assert.Equal(t, "Redeemed by Corner Cafe", body["redemption_notes"])
}

func TestVerifyRejectsBadInput(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/business/redeem/verify", owner, `{"identifier":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_IDENTIFIER", body["error_code"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/verify", owner, `{"identifier":"NOPE1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["error_code"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/verify", customer, `{"identifier":"NOPE1234"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body["error_code"])

	rec, body = e.do(t, http.MethodPost, "/api/business/redeem/complete", owner, `{"token":"NOPE1234"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["error_code"])
}

func TestCompleteExpiredOffer(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)
	tok := e.claim(t, o.ID, "in_store")

	e.now = o.ExpiryDate.Add(time.Second)
	rec, body := e.do(t, http.MethodPost, "/api/business/redeem/complete", owner, `{"token":"`+tok+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OFFER_EXPIRED", body["error_code"])
	assert.Equal(t, o.ExpiryDate.Format(time.RFC3339), body["boundary"])
}

func TestHistoryAndStats(t *testing.T) {
	e := newEnv(t)
	o := e.addOffer(t, nil)
	tok := e.claim(t, o.ID, "in_store")
	rec, _ := e.do(t, http.MethodPost, "/api/business/redeem/complete", owner, `{"token":"`+tok+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := e.do(t, http.MethodGet, "/api/business/redeem/history?redeemed_only=true&from=2026-05-01&to=2026-05-10", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]interface{})
	assert.EqualValues(t, 1, summary["redeemed_claims"])
	assert.Equal(t, "3.2", summary["total_savings_provided"])
	entries := body["redemptions"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "Ada Lovelace", entries[0].(map[string]interface{})["customer_name"])

	rec, _ = e.do(t, http.MethodGet, "/api/business/redeem/history?from=yesterday", owner, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = e.do(t, http.MethodGet, "/api/business/redeem/stats?days=7", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, body["period_days"])
	assert.EqualValues(t, 1, body["total_redemptions"])
	assert.Len(t, body["daily_breakdown"], 7)

	rec, body = e.do(t, http.MethodGet, "/api/business/redeem/stats", stranger, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total_claims"])
}
