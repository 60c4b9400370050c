// Package adminapi is the read-only operator surface: live cooldowns, the
// exposure backlog, and store health, served on a separate admin port behind
// an IP allowlist and a bearer-token guard. It never mutates engine state —
// there is deliberately no endpoint that clears a cooldown, re-enables a
// blocked account, or re-submits a pair.
package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/evetabi/arbengine/internal/config"
	"github.com/evetabi/arbengine/internal/cooldown"
	"github.com/evetabi/arbengine/internal/exposure"
	"github.com/evetabi/arbengine/internal/kvstore"
)

// Deps bundles every dependency needed for the admin router.
type Deps struct {
	Cooldown *cooldown.Registry
	Exposure *exposure.Recorder
	Store    kvstore.Store
	Cfg      *config.Config
}

// SetupRouter creates the admin Gin engine.
func SetupRouter(deps Deps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.AdminAllowedIPs))

	h := newHandler(deps)

	r.GET("/admin/health", h.Health)

	admin := r.Group("/admin")
	admin.Use(jwtMiddleware(deps.Cfg.JWT.AccessSecret))
	{
		admin.GET("/cooldowns", h.Cooldowns)
		admin.GET("/exposures", h.Exposures)
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── JWT middleware ────────────────────────────────────────────────────────────

// Claims extends jwt.RegisteredClaims with the role and token-type fields
// the operator token carries.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"` // "access" or "refresh"
}

// operatorRoles lists the roles allowed to read the admin surface.
var operatorRoles = map[string]bool{
	"admin":    true,
	"risk":     true,
	"ops":      true,
	"readonly": true,
}

// jwtMiddleware validates the Bearer token in the Authorization header and
// requires an operator-capable role. An empty secret rejects every request:
// the surface fails closed when ADMIN_JWT_SECRET is unset.
func jwtMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin surface disabled: no token secret configured"})
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := parseToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil || claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if !operatorRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// parseToken validates the token signature, algorithm, and expiry.
func parseToken(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
