package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/config"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/utils"
)

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", 9, model.RoleAdmin, 5)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	c, _ := newContext(req)
	if err := JWTAuth("secret")(ok)(c); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	id, role, found := CurrentUser(c)
	if !found || id != 9 || role != model.RoleAdmin {
		t.Fatalf("identity = %d %q %v", id, role, found)
	}

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + mustToken(t, "other"),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		c, _ := newContext(req)
		if err := JWTAuth("secret")(ok)(c); apperr.CodeOf(err) != apperr.CodeUnauthorized {
			t.Errorf("%s: want UNAUTHORIZED, got %v", name, err)
		}
	}
}

func mustToken(t *testing.T, secret string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 1, model.RolePatient, 5)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(model.RolePharmacist, model.RoleAdmin)

	c, _ := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	if err := guard(ok)(c); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("anonymous: want FORBIDDEN, got %v", err)
	}

	c, _ = newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(KeyUserID, uint64(3))
	c.Set(KeyRole, model.RolePatient)
	if err := guard(ok)(c); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("patient: want FORBIDDEN, got %v", err)
	}

	c, _ = newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(KeyUserID, uint64(2))
	c.Set(KeyRole, model.RolePharmacist)
	if err := guard(ok)(c); err != nil {
		t.Fatalf("pharmacist rejected: %v", err)
	}
}

func TestRequestID(t *testing.T) {
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	if err := RequestID()(ok)(c); err != nil {
		t.Fatal(err)
	}
	generated := rec.Header().Get(echo.HeaderXRequestID)
	if len(generated) != 36 || RequestIDOf(c) != generated {
		t.Fatalf("generated id %q / %q", generated, RequestIDOf(c))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	c, rec = newContext(req)
	_ = RequestID()(ok)(c)
	if rec.Header().Get(echo.HeaderXRequestID) != "abc-123" {
		t.Fatalf("incoming id not reused")
	}
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "p", KeyStrategy: "route_query"}
	a, _ := newContext(httptest.NewRequest(http.MethodGet, "/v1/drugs?search=para&page=2", nil))
	b, _ := newContext(httptest.NewRequest(http.MethodGet, "/v1/drugs?page=2&search=para", nil))
	d, _ := newContext(httptest.NewRequest(http.MethodGet, "/v1/drugs?page=3&search=para", nil))
	if cacheKey(cfg, a) != cacheKey(cfg, b) {
		t.Fatal("query order changed the key")
	}
	if cacheKey(cfg, a) == cacheKey(cfg, d) {
		t.Fatal("different query produced the same key")
	}
}

func TestEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodeEntry(bs)
	if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decode = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodeEntry([]byte{0, 0}); ok {
		t.Fatal("short entry accepted")
	}
}

func TestDisabledLimitersPassThrough(t *testing.T) {
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)
	if err := mw(ok)(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("token bucket without redis blocked: %v %d", err, rec.Code)
	}
}

func TestAuthLimiterMemoryStore(t *testing.T) {
	e := echo.New()
	cfg := config.AuthLimitConfig{Enabled: true, Rate: "2-M", Prefix: "test"}
	e.POST("/login", ok, NewAuthLimiter(cfg, nil, logrus.New()))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		e.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	var body struct{ Code apperr.Code }
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil || body.Code != apperr.CodeTooManyRequests {
		t.Fatalf("429 body = %s", last.Body.String())
	}
	if apperr.HTTPStatus(body.Code) != http.StatusTooManyRequests {
		t.Fatalf("code %s does not map back to 429", body.Code)
	}
}
