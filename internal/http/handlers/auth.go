package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/usershub/internal/auth"
	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, req user.SignInRequest) (user.PublicUser, error)
	SignUp(ctx context.Context, req user.SignUpRequest) (user.PublicUser, error)
}

type TokenManager interface {
	GenerateAccessToken(u user.PublicUser) (string, time.Time, error)
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// SignInObserver records sign-in outcomes (ok, unknown_email, bad_password, error).
type SignInObserver interface {
	ObserveSignIn(result string)
}

type AuthHandler struct {
	auth         Authenticator
	tokens       TokenManager
	revoker      TokenRevoker
	metrics      SignInObserver
	secureCookie bool
	log          *slog.Logger
}

type AuthHandlerOptions struct {
	// Revoker may be nil; sign-out then only clears the cookie.
	Revoker      TokenRevoker
	Metrics      SignInObserver
	SecureCookie bool
	Log          *slog.Logger
}

func NewAuthHandler(authSvc Authenticator, tokens TokenManager, opts AuthHandlerOptions) *AuthHandler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		auth:         authSvc,
		tokens:       tokens,
		revoker:      opts.Revoker,
		metrics:      opts.Metrics,
		secureCookie: opts.SecureCookie,
		log:          log,
	}
}

func (h *AuthHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveSignIn(result)
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.auth.SignUp(cctx, req)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "Email already exists")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "sign up failed", "err", err)
		RespondInternal(ctx)
		return
	}

	token, ok := h.issue(ctx, u)
	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "User registered",
		"user":        u,
		"accessToken": token,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req user.SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.auth.Authenticate(cctx, req)
	if err != nil {
		// same answer for both so the endpoint does not reveal which emails exist
		switch {
		case errors.Is(err, user.ErrNotFound):
			h.observe("unknown_email")
			RespondError(ctx, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect", nil)
		case errors.Is(err, user.ErrInvalidPassword):
			h.observe("bad_password")
			RespondError(ctx, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect", nil)
		default:
			h.observe("error")
			h.log.ErrorContext(ctx.Request.Context(), "sign in failed", "err", err)
			RespondInternal(ctx)
		}
		return
	}

	h.observe("ok")

	token, ok := h.issue(ctx, u)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "User signed in successfully",
		"user":        u,
		"accessToken": token,
	})
}

// SignOut clears the cookie and, when a revoker is configured, denylists the presented
// token so a copy of it stops working too.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	raw := middlewares.TokenFromRequest(ctx)

	if raw != "" && h.revoker != nil {
		claims, err := h.tokens.VerifyAccessToken(raw)
		if err == nil && claims.ID != "" && claims.ExpiresAt != nil {
			cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
			defer cancel()

			if err := h.revoker.Revoke(cctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				h.log.ErrorContext(ctx.Request.Context(), "revoke token failed", "err", err)
				RespondInternal(ctx)
				return
			}
		}
	}

	h.clearTokenCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "User signed out successfully"})
}

func (h *AuthHandler) issue(ctx *gin.Context, u user.PublicUser) (string, bool) {
	token, expiresAt, err := h.tokens.GenerateAccessToken(u)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "generate access token failed", "err", err)
		RespondInternal(ctx)
		return "", false
	}

	h.setTokenCookie(ctx, token, expiresAt)

	return token, true
}

func (h *AuthHandler) setTokenCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		middlewares.TokenCookieName,
		raw,
		int(time.Until(expiresAt).Seconds()),
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearTokenCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(middlewares.TokenCookieName, "", -1, "/", "", h.secureCookie, true)
}
