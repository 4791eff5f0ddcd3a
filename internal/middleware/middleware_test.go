package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/auth"
	"github.com/yigit/lingoschool/internal/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "lingoschool",
	})
}

func tokenFor(t *testing.T, jwt *auth.JWTService, role models.RoleType) string {
	t.Helper()
	pair, err := jwt.GenerateTokenPair(&models.User{ID: 7, Email: "user@lingoschool.app", RoleType: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func newAuthRouter(jwt *auth.JWTService, roles ...models.RoleType) *gin.Engine {
	m := NewAuthMiddleware(jwt, "ls_session")
	r := gin.New()
	handlers := []gin.HandlerFunc{m.JWTAuth()}
	if len(roles) > 0 {
		handlers = append(handlers, m.RoleRequired(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, ok := RequireActor(c)
		if !ok {
			return
		}
		c.String(http.StatusOK, fmt.Sprintf("%d:%s", actor.UserID, actor.Role))
	})
	r.GET("/private", handlers...)
	return r
}

func TestJWTAuth(t *testing.T) {
	jwt := newJWT()
	valid := tokenFor(t, jwt, models.RoleStaff)

	tests := []struct {
		name     string
		prepare  func(req *http.Request)
		wantCode int
		wantBody string
	}{
		{name: "missing", prepare: func(*http.Request) {}, wantCode: http.StatusUnauthorized},
		{name: "bearer header", prepare: func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+valid) }, wantCode: http.StatusOK, wantBody: "7:STAFF"},
		{name: "session cookie", prepare: func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "ls_session", Value: valid}) }, wantCode: http.StatusOK, wantBody: "7:STAFF"},
		{name: "garbage token", prepare: func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, wantCode: http.StatusUnauthorized},
		{name: "empty bearer", prepare: func(req *http.Request) { req.Header.Set("Authorization", "Bearer ") }, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			newAuthRouter(jwt).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRoleRequired(t *testing.T) {
	jwt := newJWT()
	router := newAuthRouter(jwt, models.RoleAdmin, models.RoleStaff)

	for role, want := range map[models.RoleType]int{
		models.RoleAdmin:   http.StatusOK,
		models.RoleStaff:   http.StatusOK,
		models.RoleTeacher: http.StatusForbidden,
		models.RoleParent:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, string(role))
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    dto.ErrorCode
		wantMessage string
	}{
		{name: "not found sentinel", err: fmt.Errorf("load: %w", apperrors.ErrStudentNotFound), wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeResourceNotFound},
		{name: "custom not found", err: apperrors.NewResourceNotFoundError("lesson duration 90 not configured"), wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeResourceNotFound, wantMessage: "lesson duration 90 not configured"},
		{name: "validation", err: apperrors.NewValidationError("parent email must differ"), wantStatus: http.StatusBadRequest, wantCode: dto.ErrorCodeValidationFailed, wantMessage: "parent email must differ"},
		{name: "unsupported duration", err: apperrors.ErrUnsupportedDuration, wantStatus: http.StatusBadRequest, wantCode: dto.ErrorCodeValidationFailed},
		{name: "conflict", err: apperrors.ErrReservationConflict, wantStatus: http.StatusConflict, wantCode: dto.ErrorCodeConflict},
		{name: "duplicate email", err: apperrors.ErrEmailAlreadyExists, wantStatus: http.StatusConflict, wantCode: dto.ErrorCodeResourceAlreadyExists},
		{name: "forbidden", err: apperrors.NewForbiddenError("not your student"), wantStatus: http.StatusForbidden, wantCode: dto.ErrorCodeForbidden, wantMessage: "not your student"},
		{name: "disabled", err: apperrors.ErrAccountDisabled, wantStatus: http.StatusForbidden, wantCode: dto.ErrorCodeAccountDisabled},
		{name: "credentials", err: apperrors.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: dto.ErrorCodeInvalidCredentials},
		{name: "revoked", err: apperrors.ErrTokenRevoked, wantStatus: http.StatusUnauthorized, wantCode: dto.ErrorCodeInvalidToken},
		{name: "unavailable", err: apperrors.ErrServiceUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: dto.ErrorCodeServiceUnavailable},
		{name: "unknown", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError, wantCode: dto.ErrorCodeInternalServer, wantMessage: "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body.Error.Message)
			}
		})
	}
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()), Metrics(m))
	r.GET("/students/:id", func(c *gin.Context) {
		id, err := ParseIDParam(c, "id")
		if err != nil {
			HandleAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/12", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/abc", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "lingoschool_http_requests_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestParseOptionalTimeQuery(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?from=2025-03-14&to=2025-03-15T10:00:00Z&bad=14/03", nil)

	from, err := ParseOptionalTimeQuery(c, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *from)

	to, err := ParseOptionalTimeQuery(c, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	missing, err := ParseOptionalTimeQuery(c, "none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseOptionalTimeQuery(c, "bad")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
