package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/identity"
	"github.com/octrolabs/userhub/internal/http/middlewares"
	"golang.org/x/oauth2"
)

// Consumer-side interfaces so tests can fake the collaborators.

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (identity.Profile, error)
}

type StateTokens interface {
	Issue() (string, error)
	Verify(token string) error
}

type IdentityResolver interface {
	Resolve(ctx context.Context, p identity.Profile) (user.User, error)
}

type SessionCodec interface {
	Establish(ctx context.Context, u user.User) (string, error)
	Destroy(ctx context.Context, handle string) error
}

type AuthHandler struct {
	provider OAuthProvider
	states   StateTokens
	resolver IdentityResolver
	sessions SessionCodec
	cfg      config.Config
}

func NewAuthHandler(provider OAuthProvider, states StateTokens, resolver IdentityResolver, sessions SessionCodec, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		states:   states,
		resolver: resolver,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Login redirects the browser to the identity provider's consent page.
func (h *AuthHandler) Login(ctx *gin.Context) {
	state, err := h.states.Issue()
	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	ctx.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

func (h *AuthHandler) failureRedirect(ctx *gin.Context) {
	ctx.Redirect(http.StatusFound, h.cfg.FrontendURL+"/login")
}

// Callback receives the provider redirect: verify state, exchange the
// code, fetch the asserted profile, resolve it to a local user and cut a
// session. Every failure sends the browser back to the login page.
func (h *AuthHandler) Callback(ctx *gin.Context) {
	if ctx.Query("error") != "" {
		h.failureRedirect(ctx)
		return
	}

	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		h.failureRedirect(ctx)
		return
	}

	if err := h.states.Verify(state); err != nil {
		h.failureRedirect(ctx)
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	token, err := h.provider.Exchange(cctx, code)
	if err != nil {
		h.failureRedirect(ctx)
		return
	}

	profile, err := h.provider.FetchProfile(cctx, token)
	if err != nil {
		h.failureRedirect(ctx)
		return
	}

	u, err := h.resolver.Resolve(cctx, profile)
	if err != nil {
		h.failureRedirect(ctx)
		return
	}

	handle, err := h.sessions.Establish(cctx, u)
	if err != nil {
		h.failureRedirect(ctx)
		return
	}

	h.setSessionCookie(ctx, handle, int(h.cfg.SessionTTL.Seconds()))

	ctx.Redirect(http.StatusFound, h.cfg.FrontendURL)
}

// Me returns the authenticated caller as resolved by RequireAuth.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authenticated")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// Logout destroys the session and clears the client cookie. A missing
// session is fine; destroying twice is a no-op.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	handle, err := ctx.Cookie(h.cfg.CookieName)

	if err == nil && handle != "" {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		if err := h.sessions.Destroy(cctx, handle); err != nil {
			RespondInternal(ctx, "Failed to logout")
			return
		}
	}

	h.setSessionCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, value string, maxAge int) {
	// Cross-site front-ends need SameSite=None, which browsers only
	// accept on secure cookies.
	if h.cfg.CookieSecure {
		ctx.SetSameSite(http.SameSiteNoneMode)
	} else {
		ctx.SetSameSite(http.SameSiteLaxMode)
	}

	ctx.SetCookie(h.cfg.CookieName, value, maxAge, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}
