package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/authorization"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakeAccreditationService struct {
	createErr   error
	lastCaller  accreditationdomain.Identity
	lastRequest accreditationdomain.CreateRequest
	lastToken   string
	records     map[snowflake.ID]accreditationdomain.Response
}

func (f *fakeAccreditationService) Create(ctx context.Context, caller accreditationdomain.Identity, req accreditationdomain.CreateRequest) (*accreditationdomain.Response, error) {
	f.lastCaller = caller
	f.lastRequest = req
	f.lastToken = downstream.BearerToken(ctx)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &accreditationdomain.Response{
		ID:            snowflake.ID(1001),
		SalePointID:   req.SalePointID,
		UserID:        42,
		SalePointName: "Plaza Central",
		Amount:        req.Amount,
		ReceiptDate:   req.ReceiptDate,
	}, nil
}

func (f *fakeAccreditationService) List(ctx context.Context) ([]accreditationdomain.Response, error) {
	out := make([]accreditationdomain.Response, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeAccreditationService) GetByID(ctx context.Context, id snowflake.ID) (*accreditationdomain.Response, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "accreditation not found", nil)
	}
	return &r, nil
}

func (f *fakeAccreditationService) GetByIDForOwner(ctx context.Context, callerID int64, id snowflake.ID) (*accreditationdomain.Response, error) {
	r, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != callerID {
		return nil, apperr.New(apperr.KindPermissionDenied, "you do not have permission to view this accreditation", nil)
	}
	return r, nil
}

type fakeAuthz struct{}

func (fakeAuthz) Authorize(ctx context.Context, role string, object string, action string) error {
	if role == authorization.RoleAdmin {
		return nil
	}
	return authorization.ErrForbidden
}

func newTestServer(t *testing.T, svc *fakeAccreditationService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:              engine,
		Log:              zap.NewNop(),
		AccreditationSvc: svc,
		AuthzSvc:         fakeAuthz{},
		Cfg:              testConfig(),
	})
	return engine
}

func token(t *testing.T, id int64, email, role string) string {
	t.Helper()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(engine *gin.Engine, method, path, bearer string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateAccreditation(t *testing.T) {
	svc := &fakeAccreditationService{}
	engine := newTestServer(t, svc)
	tok := token(t, 42, "u@example.com", "user")

	rec := do(engine, http.MethodPost, "/api/accreditations", tok,
		[]byte(`{"salePointId":100,"amount":150.75,"receiptDate":"2026-02-15T10:00:00Z"}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u@example.com", svc.lastCaller.Email)
	assert.Equal(t, int64(42), svc.lastCaller.ID)
	assert.Equal(t, int64(100), svc.lastRequest.SalePointID)
	assert.Equal(t, accreditationdomain.Money(15075), svc.lastRequest.Amount)
	assert.Equal(t, tok, svc.lastToken)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1001", body["id"])
	assert.Equal(t, "Plaza Central", body["salePointName"])
}

func TestCreateAccreditationRequiresToken(t *testing.T) {
	engine := newTestServer(t, &fakeAccreditationService{})

	rec := do(engine, http.MethodPost, "/api/accreditations", "", []byte(`{}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(apperr.KindUnauthenticated), decodeError(t, rec).Type)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestCreateAccreditationRejectsBadSignature(t *testing.T) {
	engine := newTestServer(t, &fakeAccreditationService{})
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := do(engine, http.MethodPost, "/api/accreditations", forged, []byte(`{}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAccreditationMalformedBody(t *testing.T) {
	engine := newTestServer(t, &fakeAccreditationService{})

	rec := do(engine, http.MethodPost, "/api/accreditations", token(t, 42, "u@example.com", "user"), []byte(`{"amount":"abc"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.KindInvalidRequest), decodeError(t, rec).Type)
}

func TestCreateAccreditationErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: apperr.New(apperr.KindNotFound, "sale point not found", nil), status: http.StatusNotFound},
		{name: "rate limited", err: apperr.New(apperr.KindRateLimited, "rate limit exceeded", nil), status: http.StatusTooManyRequests},
		{name: "unavailable", err: apperr.New(apperr.KindServiceUnavailable, "salePoint temporarily unavailable", nil), status: http.StatusServiceUnavailable},
		{name: "upstream", err: apperr.Upstream(http.StatusConflict, "user service rejected the request", nil), status: http.StatusBadGateway},
		{name: "internal", err: apperr.New(apperr.KindInternal, "failed to persist accreditation", nil), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestServer(t, &fakeAccreditationService{createErr: tc.err})

			rec := do(engine, http.MethodPost, "/api/accreditations", token(t, 42, "u@example.com", "user"),
				[]byte(`{"salePointId":100,"amount":1,"receiptDate":"2026-02-15T10:00:00Z"}`))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRateLimitedResponseCarriesRetryAfter(t *testing.T) {
	limited := apperr.New(apperr.KindRateLimited, "rate limit exceeded calling salePoint, try again later", nil)
	limited.RetryAfter = 1200 * time.Millisecond
	engine := newTestServer(t, &fakeAccreditationService{createErr: limited})

	rec := do(engine, http.MethodPost, "/api/accreditations", token(t, 42, "u@example.com", "user"),
		[]byte(`{"salePointId":100,"amount":1,"receiptDate":"2026-02-15T10:00:00Z"}`))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestInternalErrorMessageIsHidden(t *testing.T) {
	engine := newTestServer(t, &fakeAccreditationService{
		createErr: apperr.New(apperr.KindInternal, "insert failed: pq: connection refused", nil),
	})

	rec := do(engine, http.MethodPost, "/api/accreditations", token(t, 42, "u@example.com", "user"),
		[]byte(`{"salePointId":100,"amount":1,"receiptDate":"2026-02-15T10:00:00Z"}`))

	assert.Equal(t, "internal server error", decodeError(t, rec).Message)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	svc := &fakeAccreditationService{records: map[snowflake.ID]accreditationdomain.Response{
		7: {ID: 7, UserID: 42, SalePointName: "Plaza Central"},
	}}
	engine := newTestServer(t, svc)

	rec := do(engine, http.MethodGet, "/api/accreditations/admin", token(t, 42, "u@example.com", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(engine, http.MethodGet, "/api/accreditations/admin", token(t, 1, "admin@example.com", "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(engine, http.MethodGet, "/api/accreditations/admin/7", token(t, 1, "admin@example.com", "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(engine, http.MethodGet, "/api/accreditations/admin/8", token(t, 1, "admin@example.com", "admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOwnAccreditation(t *testing.T) {
	svc := &fakeAccreditationService{records: map[snowflake.ID]accreditationdomain.Response{
		7: {ID: 7, UserID: 42, SalePointName: "Plaza Central"},
	}}
	engine := newTestServer(t, svc)

	rec := do(engine, http.MethodGet, "/api/accreditations/7", token(t, 42, "u@example.com", "user"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(engine, http.MethodGet, "/api/accreditations/7", token(t, 43, "other@example.com", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperr.KindPermissionDenied), decodeError(t, rec).Type)

	rec = do(engine, http.MethodGet, "/api/accreditations/abc", token(t, 42, "u@example.com", "user"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	engine := newTestServer(t, &fakeAccreditationService{})

	rec := do(engine, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
}

func TestTokenVerifierRequiresSubject(t *testing.T) {
	v := NewTokenVerifier(testSecret, "")
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "u@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.Error(t, err)
}

func testConfig() config.Config {
	return config.Config{AuthJWTSecret: testSecret}
}
