package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/usershub/internal/auth"
	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// TokenCookieName is the cookie sign-in sets; browsers send it back instead of a header.
const TokenCookieName = "token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token id was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	revoked RevocationChecker
}

// NewAuthMiddleware wires token verification. revoked may be nil, in which case
// signed-out tokens stay valid until they expire.
func NewAuthMiddleware(jwt TokenVerifier, revoked RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoked: revoked}
}

func unauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Authentication required",
		"message": message,
	})
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	if v, err := c.Cookie(TokenCookieName); err == nil {
		return strings.TrimSpace(v)
	}

	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c)
		if raw == "" {
			unauthenticated(c, "No access token provided")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			unauthenticated(c, "Invalid or expired access token")
			return
		}

		identity, err := claims.Identity()
		if err != nil {
			unauthenticated(c, "Invalid or expired access token")
			return
		}

		if m.revoked != nil && claims.ID != "" {
			revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail closed, the denylist is the only thing standing behind sign-out
				slog.Default().ErrorContext(c.Request.Context(), "revocation lookup failed", "err", err)
				unauthenticated(c, "Could not verify access token")
				return
			}
			if revoked {
				unauthenticated(c, "Access token has been revoked")
				return
			}
		}

		// Stash useful bits of identity on the context
		c.Set(CtxUserID, identity.ID)
		c.Set(CtxEmail, identity.Email)
		c.Set(CtxRole, identity.Role)
		c.Set(CtxTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// IdentityFromContext returns the caller attached by RequireAuth.
func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	id, ok := c.Get(CtxUserID)
	if !ok {
		return user.Identity{}, false
	}

	uid, ok := id.(int64)
	if !ok || uid <= 0 {
		return user.Identity{}, false
	}

	return user.Identity{
		ID:    uid,
		Email: c.GetString(CtxEmail),
		Role:  c.GetString(CtxRole),
	}, true
}

// TokenFromContext returns the verified token's id and expiry.
func TokenFromContext(c *gin.Context) (jti string, expiresAt time.Time, ok bool) {
	jti = c.GetString(CtxTokenID)
	expiresAt = c.GetTime(CtxTokenExp)
	return jti, expiresAt, jti != ""
}
