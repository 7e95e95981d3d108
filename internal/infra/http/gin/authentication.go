package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	authsvc "campusmarket/internal/app/services/auth"
	domainauth "campusmarket/internal/domain/auth"
	domainuser "campusmarket/internal/domain/user"
)

const (
	principalContextKey = "campusmarket.principal"
	SessionCookieName   = "session"
	defaultCookieTTL    = 7 * 24 * time.Hour
)

var (
	DefaultPublicPaths = []string{"/api/v1/auth", "/livez", "/readyz", "/metrics"}

	DefaultProtectedPrefixes = []string{
		"/api/v1/me",
		"/api/v1/cart",
		"/api/v1/conversations",
		"/api/v1/messages",
		"/api/v1/admin",
		"/api/v1/sell",
		"/sell",
		"/messages",
	}
)

type SessionResolver interface {
	ResolveToken(ctx context.Context, token string) (*authsvc.ResolveResult, error)
}

// CookieSettings controls the session cookie written at login and on refresh.
type CookieSettings struct {
	Name   string
	Secure bool
	Domain string
	// TTL matches the session lifetime; the cookie is rewritten on refresh.
	TTL time.Duration
}

func (s CookieSettings) name() string {
	if s.Name == "" {
		return SessionCookieName
	}
	return s.Name
}

func (s CookieSettings) set(c *gin.Context, token string) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultCookieTTL
	}
	maxAge := int(ttl.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name(), token, maxAge, "/", s.Domain, s.Secure, true)
}

func (s CookieSettings) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name(), "", -1, "/", s.Domain, s.Secure, true)
}

// RouteGuard resolves the session on every request that is not public.
// Protected prefixes without a valid session are redirected (browser GETs)
// or rejected with 401.
type RouteGuard struct {
	Sessions          SessionResolver
	Logger            *slog.Logger
	LoginPath         string
	PublicPaths       []string
	ProtectedPrefixes []string
	Cookie            CookieSettings
}

func (g RouteGuard) Handle(c *gin.Context) {
	path := c.Request.URL.Path
	if matchesAny(path, g.publicPaths()) {
		c.Next()
		return
	}

	token, fromCookie := g.extractToken(c)
	if token != "" && g.Sessions != nil {
		resolved, err := g.Sessions.ResolveToken(c.Request.Context(), token)
		if err == nil {
			setPrincipal(c, authsvc.PrincipalFromUser(resolved.User, token))
			if resolved.Refreshed && fromCookie && resolved.Session != nil {
				g.Cookie.set(c, token)
			}
			c.Next()
			return
		}
		if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, domainauth.ErrTokenRequired) && g.Logger != nil {
			g.Logger.Warn("session lookup failed", "path", path, "error", err)
		}
		if fromCookie {
			g.Cookie.clear(c)
		}
	}

	if matchesAny(path, g.protectedPrefixes()) {
		g.reject(c)
		return
	}
	c.Next()
}

func (g RouteGuard) reject(c *gin.Context) {
	if c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/html") {
		login := g.LoginPath
		if login == "" {
			login = "/login"
		}
		c.Redirect(http.StatusFound, login+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "not_authenticated"})
}

func (g RouteGuard) extractToken(c *gin.Context) (string, bool) {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token, false
	}
	if cookie, err := c.Cookie(g.Cookie.name()); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie), true
	}
	return "", false
}

func (g RouteGuard) publicPaths() []string {
	if g.PublicPaths == nil {
		return DefaultPublicPaths
	}
	return g.PublicPaths
}

func (g RouteGuard) protectedPrefixes() []string {
	if g.ProtectedPrefixes == nil {
		return DefaultProtectedPrefixes
	}
	return g.ProtectedPrefixes
}

// matchesAny reports whether path equals a prefix or sits below it.
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

type ActivityToucher interface {
	TouchAsync(ctx context.Context, id domainuser.ID)
}

// ActivityMiddleware records the caller as active without delaying the request.
func ActivityMiddleware(tracker ActivityToucher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := currentPrincipal(c); ok && tracker != nil {
			tracker.TouchAsync(c.Request.Context(), p.UserID)
		}
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p authsvc.Principal) {
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(authsvc.WithPrincipal(c.Request.Context(), p))
}

func currentPrincipal(c *gin.Context) (authsvc.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return authsvc.Principal{}, false
	}
	p, ok := val.(authsvc.Principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (authsvc.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "not_authenticated"})
		return authsvc.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
