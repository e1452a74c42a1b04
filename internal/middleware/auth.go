package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
)

// Context keys for values stored in gin.Context.
const (
	ContextKeyPrincipal = "principal"
	ContextKeySlug      = "chatbot_slug"
)

// Resolver turns an Authorization header into a principal.
type Resolver interface {
	Resolve(ctx context.Context, header string) (auth.Principal, error)
}

// ScopeAuthorizer decides whether a principal may act on a company.
type ScopeAuthorizer interface {
	AuthorizeCompanyScope(p auth.Principal, companyID uuid.UUID) error
}

// AuthMiddleware resolves the bearer token and stores the principal.
// Any failure aborts with 401 before the handler runs.
func AuthMiddleware(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, apperr.Unauthenticated("Missing authorization header"))
			return
		}
		p, err := resolver.Resolve(c.Request.Context(), header)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// RequireCompanyScope guards /companies/:company_id routes: the caller must
// be a company principal and the path id must be its own.
func RequireCompanyScope(authorizer ScopeAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			abortWithError(c, apperr.Unauthenticated("Missing authorization header"))
			return
		}
		if p.Kind != auth.KindCompany {
			abortWithError(c, apperr.Forbidden("Company access required"))
			return
		}
		target, err := uuid.Parse(c.Param("company_id"))
		if err != nil {
			abortWithError(c, apperr.Validation("invalid company ID"))
			return
		}
		if err := authorizer.AuthorizeCompanyScope(p, target); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal, or the zero Principal
// when the route is not behind AuthMiddleware. The zero value fails every
// kind and scope check.
func GetPrincipal(c *gin.Context) auth.Principal {
	p, _ := principal(c)
	return p
}

func principal(c *gin.Context) (auth.Principal, bool) {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := val.(auth.Principal)
	return p, ok
}

func abortWithError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(apperr.KindOf(err))
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": apperr.PublicDetail(err)})
}
