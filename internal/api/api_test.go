package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"affiliate-portal/internal/common/config"
	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/identity"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/registration"
	"affiliate-portal/internal/search"
	"affiliate-portal/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

var ivan = &models.Affiliate{
	ID:             "aff-1",
	FullName:       "Ivan Ivanov",
	Email:          "ivan@example.com",
	PromoCode:      "IVAN10",
	CommissionRate: decimal.RequireFromString("10"),
	CommissionType: models.CommissionTypePercentage,
	Status:         models.AffiliateStatusActive,
}

type fakeAuth struct {
	loginErr  error
	loggedOut []string
}

func (f *fakeAuth) Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &identity.LoginResult{
		Session:   &models.Session{ID: "sess-1", AffiliateID: ivan.ID, Email: ivan.Email},
		Affiliate: ivan,
	}, nil
}

func (f *fakeAuth) Logout(ctx context.Context, sessionID string) error {
	f.loggedOut = append(f.loggedOut, sessionID)
	return nil
}

func (f *fakeAuth) Authenticate(ctx context.Context, sessionID string) (*models.Affiliate, error) {
	switch sessionID {
	case "sess-1":
		return ivan, nil
	case "sess-paused":
		return nil, errors.NewAffiliateNotFoundError("paused@example.com")
	}
	return nil, errors.NewUnauthenticatedError("session not found or expired")
}

func (f *fakeAuth) AuthenticateBearer(ctx context.Context, token string) (*models.Affiliate, error) {
	if token == "good-token" {
		return ivan, nil
	}
	return nil, errors.NewUnauthenticatedError("invalid bearer token")
}

type fakeDashboard struct {
	clicks    int64
	orders    []models.AffiliateOrder
	ordersErr error
	clicksErr error
	lastLimit int
	lastMax   int
}

func (f *fakeDashboard) CountClicks(ctx context.Context, affiliateID string) (int64, error) {
	return f.clicks, f.clicksErr
}

func (f *fakeDashboard) ListOrders(ctx context.Context, affiliateID string, limit int) ([]models.AffiliateOrder, error) {
	f.lastLimit = limit
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	if limit < len(f.orders) {
		return f.orders[:limit], nil
	}
	return f.orders, nil
}

func (f *fakeDashboard) ListAllOrders(ctx context.Context, affiliateID string, max int) ([]models.AffiliateOrder, error) {
	f.lastMax = max
	return f.orders, nil
}

type fakeMaterials struct {
	materials  []models.AffiliateMaterial
	err        error
	lastFilter store.MaterialFilter
	downloads  map[string]int
}

func (f *fakeMaterials) ListActiveMaterials(ctx context.Context, filter store.MaterialFilter) ([]models.AffiliateMaterial, error) {
	f.lastFilter = filter
	return f.materials, f.err
}

const materialID = "3f2b8c1e-5a4d-4e6f-8b9a-0c1d2e3f4a5b"

func (f *fakeMaterials) IncrementMaterialDownload(ctx context.Context, id string) error {
	if id != materialID {
		return fmt.Errorf("%w: increment material download", store.ErrNotFound)
	}
	f.downloads[id]++
	return nil
}

type fakeSearch struct{}

func (fakeSearch) Search(ctx context.Context, query string, typ models.MaterialType, size int) (*search.Result, error) {
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	return &search.Result{
		Materials: []models.AffiliateMaterial{{ID: "mat-1", Title: "Банер TestoUP", Type: models.MaterialImage}},
		TotalHits: 1,
	}, nil
}

type fakeRegistrar struct {
	err error
}

func (f *fakeRegistrar) Submit(ctx context.Context, req registration.SubmitRequest) (*models.AffiliateApplication, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AffiliateApplication{
		ID:       "app-1",
		FullName: req.FullName,
		Email:    req.Email,
		Status:   models.ApplicationStatusPending,
	}, nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error {
	return f.err
}

// ==========================
// Harness
// ==========================

type harness struct {
	server       *Server
	auth         *fakeAuth
	dashboard    *fakeDashboard
	materials    *fakeMaterials
	registration *fakeRegistrar
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Session.CookieName = "affiliate_session"
	cfg.Auth.Session.TTL = 3600
	cfg.Stats = config.StatsConfig{
		Timezone:      "Europe/Sofia",
		MaxOrders:     1000,
		MonthlyLimit:  6,
		DefaultLimit:  10,
		MaxLimit:      100,
		ShopURL:       "https://shop.testograph.eu",
		DiscountParam: "discount",
	}
	cfg.RateLimit.Register = "10-M"
	cfg.RateLimit.Login = "20-M"
	cfg.Search.MaterialsIndex = "affiliate_materials"
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.Config, *Options)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		auth:         &fakeAuth{},
		dashboard:    &fakeDashboard{},
		materials:    &fakeMaterials{downloads: map[string]int{}},
		registration: &fakeRegistrar{},
	}

	cfg := testConfig()
	opts := Options{
		Config:       cfg,
		Auth:         h.auth,
		Dashboard:    h.dashboard,
		Materials:    h.materials,
		Search:       fakeSearch{},
		Registration: h.registration,
		Checks:       map[string]Pinger{"postgres": fakePinger{}},
		Logger:       logger.NewNoOpLogger(),
	}
	if mutate != nil {
		mutate(cfg, &opts)
	}

	server, err := NewServer(opts)
	require.NoError(t, err)
	h.server = server
	return h
}

func (h *harness) do(method, path string, body interface{}, prep ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, p := range prep {
		p(req)
	}

	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func withSession(id string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "affiliate_session", Value: id})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sampleOrders() []models.AffiliateOrder {
	mk := func(id, total, commission string, status models.CommissionStatus, at time.Time) models.AffiliateOrder {
		return models.AffiliateOrder{
			ID:               id,
			AffiliateID:      "aff-1",
			OrderTotal:       decimal.RequireFromString(total),
			CommissionAmount: decimal.RequireFromString(commission),
			CommissionStatus: status,
			Currency:         "BGN",
			OrderDate:        at,
			CreatedAt:        at,
		}
	}
	return []models.AffiliateOrder{
		mk("o3", "50.00", "5.00", models.CommissionStatusPaid, time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)),
		mk("o2", "200.00", "20.00", models.CommissionStatusPending, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)),
		mk("o1", "100.00", "10.00", models.CommissionStatusPaid, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)),
	}
}

// ==========================
// Dashboard
// ==========================

func TestDashboard_RequiresSession(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/dashboard/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestDashboard_InactiveAffiliateIsNotFound(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/dashboard/stats", nil, withSession("sess-paused"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_BearerFallback(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/dashboard/profile", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer good-token")
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/dashboard/profile", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer bad-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t, nil)
	h.dashboard.orders = sampleOrders()

	rec := h.do(http.MethodGet, "/api/dashboard/orders", nil, withSession("sess-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, h.dashboard.lastLimit)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	orders := body["orders"].([]interface{})
	require.Len(t, orders, 3)
	first := orders[0].(map[string]interface{})
	assert.Equal(t, "o3", first["id"])
	assert.EqualValues(t, 5, first["commission_amount"])
}

func TestListOrders_LimitParsing(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"?limit=2", 2},
		{"?limit=500", 100},
		{"?limit=0", 10},
		{"?limit=abc", 10},
	}
	for _, tt := range tests {
		rec := h.do(http.MethodGet, "/api/dashboard/orders"+tt.query, nil, withSession("sess-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tt.want, h.dashboard.lastLimit, tt.query)
	}
}

func TestEndpointsFailIndependently(t *testing.T) {
	h := newHarness(t, nil)
	h.dashboard.orders = sampleOrders()
	h.dashboard.clicks = 12
	h.dashboard.ordersErr = fmt.Errorf("%w: list orders: connection refused", store.ErrQuery)

	rec := h.do(http.MethodGet, "/api/dashboard/orders", nil, withSession("sess-1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = h.do(http.MethodGet, "/api/dashboard/stats", nil, withSession("sess-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetStats(t *testing.T) {
	h := newHarness(t, nil)
	h.dashboard.orders = sampleOrders()
	h.dashboard.clicks = 12

	rec := h.do(http.MethodGet, "/api/dashboard/stats", nil, withSession("sess-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000, h.dashboard.lastMax)

	st := decode(t, rec)["stats"].(map[string]interface{})
	assert.EqualValues(t, 12, st["total_clicks"])
	assert.EqualValues(t, 3, st["total_orders"])
	assert.EqualValues(t, 15, st["total_commission"])
	assert.EqualValues(t, 20, st["pending_commission"])
	assert.EqualValues(t, 10, st["commission_rate"])
}

func TestGetStats_ClicksFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.dashboard.clicksErr = fmt.Errorf("%w: count clicks", store.ErrTimeout)

	rec := h.do(http.MethodGet, "/api/dashboard/stats", nil, withSession("sess-1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetReport(t *testing.T) {
	h := newHarness(t, nil)
	h.dashboard.orders = sampleOrders()
	h.dashboard.clicks = 12

	rec := h.do(http.MethodGet, "/api/dashboard/report", nil, withSession("sess-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	ratios := body["ratios"].(map[string]interface{})
	assert.EqualValues(t, 25, ratios["conversion_rate"])
	assert.EqualValues(t, 116.67, ratios["avg_order_value"])

	monthly := body["monthly"].([]interface{})
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-02", monthly[0].(map[string]interface{})["month"])
	assert.EqualValues(t, 2, monthly[1].(map[string]interface{})["orders"])
}

func TestGetProfile(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/dashboard/profile", nil, withSession("sess-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "https://shop.testograph.eu?discount=IVAN10", body["referral_link"])
	affiliate := body["affiliate"].(map[string]interface{})
	assert.Equal(t, "IVAN10", affiliate["promo_code"])
	assert.EqualValues(t, 10, affiliate["commission_rate"])
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://shop.testograph.eu?discount=IVAN10", referralLink("https://shop.testograph.eu", "discount", "IVAN10"))
	assert.Equal(t, "https://shop.example.com/bg?discount=A+B&utm=x", referralLink("https://shop.example.com/bg?utm=x", "discount", "A B"))
}

// ==========================
// Materials
// ==========================

func TestListMaterials(t *testing.T) {
	h := newHarness(t, nil)
	h.materials.materials = []models.AffiliateMaterial{{ID: "mat-1", Title: "Банер", Type: models.MaterialImage, ViewType: "banner", IsActive: true}}

	rec := h.do(http.MethodGet, "/api/materials?type=image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MaterialImage, h.materials.lastFilter.Type)

	materials := decode(t, rec)["materials"].([]interface{})
	require.Len(t, materials, 1)
	assert.Equal(t, "banner", materials[0].(map[string]interface{})["view_type"])
}

func TestListMaterials_Errors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/materials?type=poster", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.materials.err = fmt.Errorf("%w: list materials", store.ErrQuery)
	rec = h.do(http.MethodGet, "/api/materials", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchMaterials(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/materials/search?q=testoup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = h.do(http.MethodGet, "/api/materials/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchMaterials_NotRoutedWithoutIndex(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config, opts *Options) { opts.Search = nil })

	rec := h.do(http.MethodGet, "/api/materials/search?q=testoup", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadMaterial(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/materials/"+materialID+"/download", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.materials.downloads[materialID])

	rec = h.do(http.MethodPost, "/api/materials/7d0c3a4e-2f61-4b8e-9a57-1c2d3e4f5a6b/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// malformed ids never reach the store
	rec = h.do(http.MethodPost, "/api/materials/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, h.materials.downloads, 1)
}

// ==========================
// Registration and auth
// ==========================

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/register", map[string]interface{}{
		"full_name": "Ivan Ivanov",
		"email":     "ivan@example.com",
		"quiz_data": map[string]interface{}{"experience": "hobby"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Заявката е подадена успешно", body["message"])
	assert.Equal(t, "pending", body["application"].(map[string]interface{})["status"])
}

func TestRegister_Errors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/register", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Моля попълни всички задължителни полета", decode(t, rec)["error"])

	h.registration.err = errors.NewDuplicateApplicationError("ivan@example.com", nil)
	rec = h.do(http.MethodPost, "/api/register", map[string]interface{}{"full_name": "Ivan Ivanov"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Вече съществува заявка с този email адрес", decode(t, rec)["error"])

	h.registration.err = errors.NewDatabaseInsertFailedError(stderrors.New("disk full"))
	rec = h.do(http.MethodPost, "/api/register", map[string]interface{}{"full_name": "Ivan Ivanov"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Грешка при подаване на заявката", decode(t, rec)["error"])
}

func TestRegister_RateLimited(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config, opts *Options) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Register = "1-M"
	})

	body := map[string]interface{}{"full_name": "Ivan Ivanov"}
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/register", body).Code)

	rec := h.do(http.MethodPost, "/api/register", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	// login has its own counter
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@b.c", "password": "x"}).Code)
}

func TestNewServer_InvalidRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Login = "lots"

	_, err := NewServer(Options{Config: cfg, Logger: logger.NewNoOpLogger()})
	assert.Error(t, err)
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ivan@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "affiliate_session", cookies[0].Name)
	assert.Equal(t, "sess-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestLogin_NotApproved(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.loginErr = errors.NewAccountNotApprovedError("paused@example.com")

	rec := h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "paused@example.com", "password": "secret"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Акаунтът ти все още не е одобрен или не съществува", decode(t, rec)["error"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/auth/logout", nil, withSession("sess-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sess-1"}, h.auth.loggedOut)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

// ==========================
// Health
// ==========================

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/readyz", nil).Code)

	h = newHarness(t, func(cfg *config.Config, opts *Options) {
		opts.Checks["redis"] = fakePinger{err: stderrors.New("connection refused")}
	})
	rec := h.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checks := decode(t, rec)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestReadiness_PingFunc(t *testing.T) {
	called := false
	h := newHarness(t, func(cfg *config.Config, opts *Options) {
		opts.Checks["camunda"] = PingFunc(func(ctx context.Context) error {
			called = true
			return nil
		})
	})

	rec := h.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, "ok", decode(t, rec)["checks"].(map[string]interface{})["camunda"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/healthz", nil)

	rec := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/healthz", nil, func(r *http.Request) { r.Header.Set("X-Request-ID", "req-42") })
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = h.do(http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
