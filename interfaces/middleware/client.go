package middleware

import (
	"github.com/gin-gonic/gin"
)

// ClientKey is the gin context key the tenant name is stored under.
const ClientKey = "client_name"

// DefaultClient is assumed when no X-Client header is sent.
const DefaultClient = "testing"

// Client resolves the calling tenant from the X-Client header. Service-name
// remapping downstream is keyed on this value.
func Client() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		name := ctx.Request.Header.Get("X-Client")
		if name == "" {
			name = DefaultClient
		}
		ctx.Set(ClientKey, name)
		ctx.Next()
	}
}

// ClientName reads the tenant set by Client.
func ClientName(ctx *gin.Context) string {
	if name, ok := ctx.Get(ClientKey); ok {
		if s, ok := name.(string); ok && s != "" {
			return s
		}
	}
	return DefaultClient
}
