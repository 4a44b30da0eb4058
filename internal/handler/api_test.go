package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pharmapin/pharmapin/internal/config"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/handler"
	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/repository/memstore"
	"github.com/pharmapin/pharmapin/internal/router"
	"github.com/pharmapin/pharmapin/internal/search"
	"github.com/pharmapin/pharmapin/internal/service"
)

type testAPI struct {
	e  *echo.Echo
	st *memstore.Store
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.Config{
		Env:             "test",
		StoreDriver:     config.DriverMemory,
		JWTSecret:       "test-secret",
		AccessTTLMin:    15,
		RefreshTTLDays:  7,
		BcryptCost:      4,
		SearchRadiusKm:  10,
		UploadDir:       t.TempDir(),
		MaxCertificates: 5,
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memstore.New()
	pharmacies := service.NewPharmacyService(st.Pharmacies, nil, cfg.MaxCertificates)
	catalog := service.NewCatalogService(st.Drugs, st.Inventory, st.Pharmacies)
	finder := search.New(st.Search, st.Search, st.Search, cfg.SearchRadiusKm)

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(middleware.RequestID(), middleware.AccessLog(log))
	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, st.Users, st.Tokens),
		Health:     handler.NewHealthHandler(st),
		Onboarding: handler.NewOnboardingHandler(pharmacies, cfg.UploadDir),
		Pharmacies: handler.NewPharmacyHandler(pharmacies, cfg.SearchRadiusKm),
		Drugs:      handler.NewDrugHandler(catalog),
		Inventory:  handler.NewInventoryHandler(catalog, finder, cfg.SearchRadiusKm),
		Search:     handler.NewSearchHandler(finder),
		Orders:     handler.NewOrderHandler(service.NewOrderService(st.Orders, st.Pharmacies, nil)),
		Patients:   handler.NewPatientHandler(service.NewPatientService(st.Patients, st.Pharmacies)),
		Admin:      handler.NewAdminHandler(service.NewAdminService(st.Users, st.Tokens, st.Pharmacies, st.Drugs, st.Orders)),
	}, router.Options{JWTSecret: cfg.JWTSecret})
	return &testAPI{e: e, st: st}
}

// do sends body as JSON and returns the recorder.
func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type authBody struct {
	User struct {
		ID    uint64     `json:"id"`
		Email string     `json:"email"`
		Role  model.Role `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

type errBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errBody {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("want %d got %d: %s", status, rec.Code, rec.Body.String())
	}
	var eb errBody
	decode(t, rec, &eb)
	if eb.Code != code || eb.Error == "" {
		t.Fatalf("want code %s with a message, got %+v", code, eb)
	}
	return eb
}

func (a *testAPI) register(t *testing.T, username string, role model.Role) authBody {
	t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"firstName": "Test", "lastName": "User", "username": username,
		"email": username + "@example.com", "password": "secret123", "role": role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var ab authBody
	decode(t, rec, &ab)
	return ab
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	rec = api.do(http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
}

func TestErrorBodyShape(t *testing.T) {
	api := newAPI(t)
	expectError(t, api.do(http.MethodGet, "/v1/me", "", nil), http.StatusUnauthorized, "UNAUTHORIZED")
	expectError(t, api.do(http.MethodGet, "/v1/no-such-route", "", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(http.MethodGet, "/v1/pharmacies/abc", "", nil), http.StatusBadRequest, "INVALID_INPUT")
	expectError(t, api.do(http.MethodGet, "/v1/pharmacies/999", "", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestRegisterLoginMe(t *testing.T) {
	api := newAPI(t)
	ab := api.register(t, "amina", "")
	if ab.User.Role != model.RolePatient || ab.Access.Token == "" || ab.Refresh.Token == "" {
		t.Fatalf("unexpected register response %+v", ab)
	}

	dup := api.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"username": "amina2", "email": "AMINA@example.com", "password": "secret123",
	})
	expectError(t, dup, http.StatusConflict, "DUPLICATE_ENTRY")

	bad := api.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"username": "boss", "email": "boss@example.com", "password": "secret123", "role": "admin",
	})
	if eb := expectError(t, bad, http.StatusBadRequest, "VALIDATION_ERROR"); eb.Fields["role"] == "" {
		t.Fatalf("role field missing: %+v", eb)
	}

	wrong := api.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "amina@example.com", "password": "nope"})
	expectError(t, wrong, http.StatusUnauthorized, "UNAUTHORIZED")

	ok := api.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "amina@example.com", "password": "secret123"})
	if ok.Code != http.StatusOK {
		t.Fatalf("login: %d %s", ok.Code, ok.Body.String())
	}
	var login authBody
	decode(t, ok, &login)

	me := api.do(http.MethodGet, "/v1/me", login.Access.Token, nil)
	if me.Code != http.StatusOK || !strings.Contains(me.Body.String(), "amina@example.com") {
		t.Fatalf("me: %d %s", me.Code, me.Body.String())
	}
	if strings.Contains(me.Body.String(), "secret123") {
		t.Fatalf("password leaked in /me")
	}
}

func TestRoleGuards(t *testing.T) {
	api := newAPI(t)
	patient := api.register(t, "patient1", model.RolePatient)
	expectError(t, api.do(http.MethodGet, "/v1/onboarding/status", patient.Access.Token, nil), http.StatusForbidden, "FORBIDDEN")
	expectError(t, api.do(http.MethodGet, "/v1/admin/stats", patient.Access.Token, nil), http.StatusForbidden, "FORBIDDEN")

	pharmacist := api.register(t, "chemist", model.RolePharmacist)
	rec := api.do(http.MethodGet, "/v1/onboarding/status", pharmacist.Access.Token, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "no_pharmacy") {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
}

// seedPharmacy stores an approved, located pharmacy for ownerID.
func (a *testAPI) seedPharmacy(t *testing.T, ownerID uint64) *model.Pharmacy {
	t.Helper()
	p := &model.Pharmacy{
		OwnerID: ownerID, Name: "CBD Chemist", LicenseNumber: "PPB-100",
		Address:  model.Address{Street: "Moi Avenue", City: "Nairobi"},
		Location: geo.NewPoint(-1.2864, 36.8172), LocationSet: true,
		Status: model.StatusApproved, IsActive: true, IsVerified: true,
	}
	if err := a.st.Pharmacies.Create(context.Background(), p); err != nil {
		t.Fatalf("seed pharmacy: %v", err)
	}
	return p
}

func TestCatalogSearchAndOrderFlow(t *testing.T) {
	api := newAPI(t)
	chemist := api.register(t, "chemist", model.RolePharmacist)
	patient := api.register(t, "wanjiku", model.RolePatient)
	pharmacy := api.seedPharmacy(t, chemist.User.ID)

	rec := api.do(http.MethodPost, "/v1/drugs", chemist.Access.Token, map[string]any{
		"name": "Paracetamol 500mg", "category": "Analgesic",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create drug: %d %s", rec.Code, rec.Body.String())
	}
	var drug struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &drug)

	stock := map[string]any{"drugId": drug.ID, "price": 120, "quantity": 5}
	rec = api.do(http.MethodPost, "/v1/inventory", chemist.Access.Token, stock)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add inventory: %d %s", rec.Code, rec.Body.String())
	}
	var inv struct {
		ID       uint64 `json:"id"`
		Quantity int    `json:"quantity"`
	}
	decode(t, rec, &inv)

	again := map[string]any{"drugId": drug.ID, "price": 1, "quantity": 99}
	expectError(t, api.do(http.MethodPost, "/v1/inventory", chemist.Access.Token, again), http.StatusConflict, "DUPLICATE_ENTRY")
	if got, _ := api.st.Inventory.GetByID(context.Background(), inv.ID); got.Quantity != 5 {
		t.Fatalf("duplicate add touched the existing row: quantity %d", got.Quantity)
	}

	rec = api.do(http.MethodPost, "/v1/search", "", map[string]any{
		"searchTerm":   "paracetamol",
		"userLocation": map[string]float64{"lat": -1.2921, "lng": 36.8219},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}
	var found struct {
		Data []struct {
			InventoryID uint64          `json:"inventoryId"`
			Distance    json.RawMessage `json:"distance"`
		} `json:"data"`
		Count int `json:"count"`
	}
	decode(t, rec, &found)
	if found.Count != 1 || found.Data[0].InventoryID != inv.ID {
		t.Fatalf("search results %+v", found)
	}
	if string(found.Data[0].Distance) == `"N/A"` {
		t.Fatalf("distance should be known with an origin")
	}

	order := map[string]any{
		"pharmacyId": pharmacy.ID,
		"items":      []map[string]any{{"inventoryId": inv.ID, "quantity": 2}},
	}
	expectError(t, api.do(http.MethodPost, "/v1/orders", chemist.Access.Token, order), http.StatusForbidden, "FORBIDDEN")

	rec = api.do(http.MethodPost, "/v1/orders", patient.Access.Token, order)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order: %d %s", rec.Code, rec.Body.String())
	}
	var placed struct {
		ID          uint64            `json:"id"`
		OrderNumber string            `json:"orderNumber"`
		Status      model.OrderStatus `json:"status"`
		TotalAmount decimal.Decimal   `json:"totalAmount"`
	}
	decode(t, rec, &placed)
	if placed.Status != model.OrderPending || !placed.TotalAmount.Equal(decimal.NewFromInt(240)) || placed.OrderNumber == "" {
		t.Fatalf("placed order %+v", placed)
	}

	tooMany := map[string]any{
		"pharmacyId": pharmacy.ID,
		"items":      []map[string]any{{"inventoryId": inv.ID, "quantity": 4}},
	}
	expectError(t, api.do(http.MethodPost, "/v1/orders", patient.Access.Token, tooMany), http.StatusConflict, "INSUFFICIENT_STOCK")
	if got, _ := api.st.Inventory.GetByID(context.Background(), inv.ID); got.Quantity != 3 {
		t.Fatalf("quantity after orders = %d, want 3", got.Quantity)
	}

	rec = api.do(http.MethodGet, "/v1/orders/pharmacy", chemist.Access.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pharmacy orders: %d %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
	}
	decode(t, rec, &list)
	if list.Total != 1 || list.Page != 1 {
		t.Fatalf("pharmacy orders page %+v", list)
	}
}

func TestSearchValidation(t *testing.T) {
	api := newAPI(t)
	expectError(t, api.do(http.MethodGet, "/v1/inventory/search/drugs", "", nil), http.StatusBadRequest, "INVALID_INPUT")

	rec := api.do(http.MethodPost, "/v1/search", "", map[string]any{
		"searchTerm":   "x",
		"userLocation": map[string]float64{"lat": 95, "lng": 0},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range origin: %d %s", rec.Code, rec.Body.String())
	}

	zero := api.do(http.MethodPost, "/v1/search", "", map[string]any{
		"searchTerm":   "x",
		"filters":      map[string]any{"distance": 0},
		"userLocation": map[string]float64{"lat": -1.29, "lng": 36.82},
	})
	expectError(t, zero, http.StatusBadRequest, "INVALID_INPUT")
	expectError(t, api.do(http.MethodGet, "/v1/inventory/search/drugs?drugName=x&maxDistance=0", "", nil),
		http.StatusBadRequest, "INVALID_INPUT")

	rec = api.do(http.MethodPost, "/v1/search", "", map[string]any{"searchTerm": "nothing"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Fatalf("empty search: %d %s", rec.Code, rec.Body.String())
	}
}
