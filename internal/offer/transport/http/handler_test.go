package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerhub/internal/business"
	"offerhub/internal/offer/service"
	"offerhub/internal/storage/memory"
	"offerhub/pkg/middleware"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

const createBody = `{
	"product_name": "Latte",
	"discount_type": "percentage",
	"discount_value": "20",
	"original_price": "15.99",
	"start_date": "2026-05-01T00:00:00Z",
	"expiry_date": "2026-06-01T00:00:00Z",
	"max_claims": 10
}`

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memory.New()
	st.PutBusiness(&business.Business{ID: "biz-1", OwnerUserID: "owner-1", Name: "Corner Cafe"})
	st.PutBusiness(&business.Business{ID: "biz-2", OwnerUserID: "owner-2", Name: "Bakery"})

	svc := service.NewService(st.Offers(), st.Businesses(), log)
	svc.Now = func() time.Time { return now }
	h := NewHandler(svc, log)
	h.Now = svc.Now

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Test-User"); id != "" {
				req = req.WithContext(middleware.WithUserID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, user, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
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
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func createOffer(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, body := do(t, h, http.MethodPost, "/api/offers", "owner-1", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}

func TestCreateAndGetOffer(t *testing.T) {
	h := newRouter(t)
	id := createOffer(t, h)

	rec, body := do(t, h, http.MethodGet, "/api/offers/"+id, "customer-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20% off Latte", body["title"])
	assert.Equal(t, "percentage", body["discount_type"])
	assert.Equal(t, "20", body["discount_value"])
	assert.Equal(t, "20% Off", body["display_text"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "biz-1", body["business_id"])
}

func TestCreateOfferValidation(t *testing.T) {
	h := newRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/offers", "owner-1", `{"discount_type":"percentage","discount_value":"20","original_price":"5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start_date", body["field"])

	bad := strings.Replace(createBody, `"discount_value": "20"`, `"discount_value": "120"`, 1)
	rec, body = do(t, h, http.MethodPost, "/api/offers", "owner-1", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])

	rec, _ = do(t, h, http.MethodPost, "/api/offers", "owner-1", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOfferWithoutBusiness(t *testing.T) {
	h := newRouter(t)
	rec, body := do(t, h, http.MethodPost, "/api/offers", "customer-1", createBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body["error_code"])
}

func TestSetStatusIsOwnerScoped(t *testing.T) {
	h := newRouter(t)
	id := createOffer(t, h)

	rec, _ := do(t, h, http.MethodPatch, "/api/offers/"+id+"/status", "owner-2", `{"is_active": false}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := do(t, h, http.MethodPatch, "/api/offers/"+id+"/status", "owner-1", `{"is_active": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["is_active"])

	rec, _ = do(t, h, http.MethodGet, "/api/offers/"+id, "customer-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "inactive offers are hidden")

	rec, _ = do(t, h, http.MethodPatch, "/api/offers/"+id+"/status", "owner-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBusinessOffers(t *testing.T) {
	h := newRouter(t)
	createOffer(t, h)
	createOffer(t, h)

	rec, body := do(t, h, http.MethodGet, "/api/business/offers", "owner-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total"])

	rec, body = do(t, h, http.MethodGet, "/api/business/offers", "owner-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total"])
}

func TestCalculate(t *testing.T) {
	h := newRouter(t)
	id := createOffer(t, h)

	rec, body := do(t, h, http.MethodPost, "/api/offers/"+id+"/calculate", "customer-1", `{"quantity": 2, "item_price": "10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["offer_id"])
	assert.Equal(t, true, body["is_valid"])
	assert.Equal(t, "4", body["discount_amount"])
	assert.Equal(t, "16", body["final_price"])

	rec, body = do(t, h, http.MethodPost, "/api/offers/"+id+"/calculate", "customer-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3.2", body["discount_amount"], "defaults to one unit at the offer price")

	rec, _ = do(t, h, http.MethodPost, "/api/offers/missing/calculate", "customer-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
