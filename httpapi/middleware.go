package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/harborcms/admingate"
)

const (
	ctxIdentityKey     = "admingate.identity"
	ctxSessionTokenKey = "admingate.sessionToken"
)

// requestContext copies the caller's origin address and user agent into the
// request context so the engine sees them without knowing about gin.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = admingate.WithClientIP(ctx, c.ClientIP())
		ctx = admingate.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// loginThrottle is a process-wide brake on the login endpoint, independent
// of the per-client lockout tracker. It bounds total hash work under a
// distributed guessing run.
func loginThrottle(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			// Peek at the wait without holding the slot; a rejected
			// request must not consume future capacity.
			res := limiter.Reserve()
			delay := res.Delay()
			res.Cancel()
			writeError(c, &admingate.RateLimitedError{RetryAfter: delay})
			return
		}
		c.Next()
	}
}

// authenticate resolves the caller's identity from the session cookie first,
// then from a bearer token. Unauthenticated requests are rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if cookie, err := c.Cookie(s.engine.Config().Session.CookieName); err == nil && cookie != "" {
			identity, err := s.engine.ValidateSession(ctx, cookie)
			if err != nil {
				s.clearSessionCookie(c)
				writeError(c, err)
				return
			}
			c.Set(ctxIdentityKey, identity)
			c.Set(ctxSessionTokenKey, cookie)
			// The server-side activity window just slid; the cookie's
			// expiry must slide with it.
			s.setSessionCookie(c, cookie)
			c.Next()
			return
		}

		if bearer := bearerToken(c); bearer != "" {
			claims, err := s.engine.ValidateBearer(ctx, bearer)
			if err != nil {
				writeError(c, err)
				return
			}
			c.Set(ctxIdentityKey, claims.Identity)
			c.Next()
			return
		}

		writeError(c, admingate.ErrSessionInvalid)
	}
}

// requireRole gates a route on the caller's privilege tier. Must run after
// authenticate.
func requireRole(min admingate.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok || !identity.Role.AtLeast(min) {
			writeError(c, admingate.ErrForbidden)
			return
		}
		c.Next()
	}
}

// csrfProtect issues a fresh anti-forgery token on every safe request and
// enforces the check on every state-changing one. Token lookup order is
// header, then form field, then the readable cookie. Issuance is
// best-effort; the check never is.
func (s *Server) csrfProtect() gin.HandlerFunc {
	cfg := s.engine.Config().CSRF
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			if tok, err := s.engine.IssueCSRF(c.Request.Context()); err == nil {
				c.Header(cfg.HeaderName, tok.Value)
				s.setCSRFCookie(c, tok.Value)
			}
			c.Next()
			return
		}

		value := c.GetHeader(cfg.HeaderName)
		if value == "" {
			value = c.PostForm(cfg.FieldName)
		}
		if value == "" {
			if cookie, err := c.Cookie(cfg.CookieName); err == nil {
				value = cookie
			}
		}

		if err := s.engine.CheckCSRF(c.Request.Context(), value); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (admingate.IdentitySummary, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return admingate.IdentitySummary{}, false
	}
	identity, ok := v.(admingate.IdentitySummary)
	return identity, ok
}

func sessionTokenFrom(c *gin.Context) string {
	v, ok := c.Get(ctxSessionTokenKey)
	if !ok {
		return ""
	}
	token, _ := v.(string)
	return token
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
