package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeResolver map[string]auth.Principal

func (f fakeResolver) Resolve(ctx context.Context, header string) (auth.Principal, error) {
	p, ok := f[header]
	if !ok {
		return auth.Principal{}, apperr.Unauthenticated("invalid token")
	}
	return p, nil
}

type sameCompany struct{}

func (sameCompany) AuthorizeCompanyScope(p auth.Principal, id uuid.UUID) error {
	if p.CompanyID != id {
		return apperr.Forbidden("Access to this company is not allowed")
	}
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	companyID := uuid.New()
	resolver := fakeResolver{"Bearer good": auth.CompanyPrincipal(companyID)}

	r := gin.New()
	r.Use(AuthMiddleware(resolver))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"company_id": GetPrincipal(c).CompanyID})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
				assert.Contains(t, w.Body.String(), `"detail"`)
			} else {
				assert.Contains(t, w.Body.String(), companyID.String())
			}
		})
	}
}

func TestRequireCompanyScope(t *testing.T) {
	own := uuid.New()
	other := uuid.New()
	resolver := fakeResolver{
		"Bearer company": auth.CompanyPrincipal(own),
		"Bearer user":    auth.UserPrincipal(own, uuid.New()),
	}

	r := gin.New()
	g := r.Group("/companies/:company_id", AuthMiddleware(resolver), RequireCompanyScope(sameCompany{}))
	g.GET("/settings", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		header string
		path   string
		want   int
	}{
		{"own company", "Bearer company", "/companies/" + own.String() + "/settings", http.StatusNoContent},
		{"other company", "Bearer company", "/companies/" + other.String() + "/settings", http.StatusForbidden},
		{"user principal", "Bearer user", "/companies/" + own.String() + "/settings", http.StatusForbidden},
		{"bad id", "Bearer company", "/companies/not-a-uuid/settings", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", tc.header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestSlugFromHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"acme.chatelio.io", "acme"},
		{"ACME.chatelio.io:443", "acme"},
		{"chatelio.io", ""},
		{"www.chatelio.io", ""},
		{"a.b.chatelio.io", ""},
		{"acme.other.io", ""},
		{"evilchatelio.io", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SlugFromHost(tc.host, "chatelio.io"), tc.host)
	}
}

func TestSubdomainSetsSlug(t *testing.T) {
	r := gin.New()
	r.Use(Subdomain("chatelio.io:8080"))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetSlug(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.chatelio.io:8080"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "acme", w.Body.String())
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}
