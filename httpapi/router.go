// Package httpapi exposes the engine over HTTP with gin. Sessions travel in
// an HttpOnly cookie; API clients may use bearer tokens instead. Every
// state-changing route sits behind the CSRF guard with no bypass path.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/harborcms/admingate"
	promexport "github.com/harborcms/admingate/metrics/export/prometheus"
)

// Options tunes the HTTP layer; zero values fall back to defaults.
type Options struct {
	// LoginRatePerSecond caps login attempts process-wide, on top of the
	// per-client lockout. Default 10.
	LoginRatePerSecond float64
	// LoginBurst is the throttle's burst allowance. Default 20.
	LoginBurst int
	// Registry receives the engine's Prometheus collector. A private
	// registry is created when nil.
	Registry *prometheus.Registry
}

// Server owns the router and its cookie policy.
type Server struct {
	engine  *admingate.Engine
	router  *gin.Engine
	limiter *rate.Limiter
}

// NewServer wires all routes onto a fresh gin engine.
func NewServer(engine *admingate.Engine, opts Options) *Server {
	if opts.LoginRatePerSecond <= 0 {
		opts.LoginRatePerSecond = 10
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 20
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(promexport.NewCollector(engine))

	s := &Server{
		engine:  engine,
		limiter: rate.NewLimiter(rate.Limit(opts.LoginRatePerSecond), opts.LoginBurst),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestContext(), s.csrfProtect())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/csrf", s.handleCSRF)
	router.POST("/login", loginThrottle(s.limiter), s.handleLogin)

	authed := router.Group("/", s.authenticate())
	authed.POST("/logout", s.handleLogout)
	authed.POST("/refresh-token", s.handleRefreshToken)
	authed.POST("/verify-session", s.handleVerifySession)
	authed.POST("/change-password", s.handleChangePassword)
	authed.GET("/security-logs", requireRole(admingate.RoleSuperAdmin), s.handleSecurityLogs)

	s.router = router
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	cfg := s.engine.Config().Session
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	cfg := s.engine.Config().Session
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// setCSRFCookie mirrors an issued token into a cookie the frontend may
// read. It is a delivery channel only; checks always go through the guard.
func (s *Server) setCSRFCookie(c *gin.Context, value string) {
	cfg := s.engine.Config()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CSRF.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cfg.CSRF.MaxAge.Seconds()),
		Secure:   cfg.Session.CookieSecure,
		HttpOnly: false,
		SameSite: cfg.Session.SameSite,
	})
}
