package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// Hosts that are never treated as a chatbot slug.
var reservedSubdomains = map[string]bool{
	"www": true, "api": true, "admin": true, "app": true,
}

// Subdomain extracts "<slug>" from a Host of the form "<slug>.<baseDomain>"
// and stores it for the public handlers. Requests on any other host pass
// through untouched.
func Subdomain(baseDomain string) gin.HandlerFunc {
	base := strings.ToLower(hostOnly(baseDomain))
	return func(c *gin.Context) {
		if slug := SlugFromHost(c.Request.Host, base); slug != "" {
			c.Set(ContextKeySlug, slug)
		}
		c.Next()
	}
}

// SlugFromHost returns the single label in front of base, or "".
func SlugFromHost(host, base string) string {
	host = strings.ToLower(hostOnly(host))
	if base == "" || !strings.HasSuffix(host, "."+base) {
		return ""
	}
	label := strings.TrimSuffix(host, "."+base)
	if label == "" || strings.Contains(label, ".") || reservedSubdomains[label] {
		return ""
	}
	return label
}

// GetSlug returns the slug set by Subdomain, or "".
func GetSlug(c *gin.Context) string {
	val, exists := c.Get(ContextKeySlug)
	if !exists {
		return ""
	}
	slug, _ := val.(string)
	return slug
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
