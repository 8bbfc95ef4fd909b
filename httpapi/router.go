package httpapi

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/ffauth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures NewRouter.
type Options struct {
	Logger *zap.Logger
	// AllowedOrigins lists exact CORS origins allowed with credentials. Empty
	// disables cross-origin access; "*" allows any origin without credentials.
	AllowedOrigins []string
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// NewRouter builds the gin engine serving the auth routes.
func NewRouter(engine *ffauth.Engine, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(Logger(logger))
	if cfg, ok := corsConfig(opts.AllowedOrigins); ok {
		router.Use(cors.New(cfg))
	}
	router.Use(clientIP())

	h := &handler{engine: engine, logger: logger}

	router.GET("/healthz", h.healthz)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	a := router.Group("/auth")
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/refresh", h.refresh)
	a.POST("/logout", h.logout)
	a.GET("/me", RequireAuth(engine), h.me)

	return router
}

// corsConfig reports false when no origin is configured; the router then
// serves same-origin callers only. "*" opens every origin but never with
// credentials, since the access cookie must stay a same-site credential.
func corsConfig(origins []string) (cors.Config, bool) {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg, true
		}
		allowed[o] = struct{}{}
	}
	if len(allowed) == 0 {
		return cfg, false
	}

	cfg.AllowCredentials = true
	cfg.AllowOriginFunc = func(origin string) bool {
		_, ok := allowed[strings.TrimRight(origin, "/")]
		return ok
	}
	return cfg, true
}

// clientIP threads the resolved client address into the request context so
// audit events can carry it.
func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ffauth.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
