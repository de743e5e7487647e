package http

import (
	"net/http"

	"github.com/atinyakov/GridCaptcha/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the settings NewRouter needs besides handlers.
type RouterConfig struct {
	// OperatorSecret verifies operator bearer tokens.
	OperatorSecret []byte
	// CORSOrigins are the sites allowed to call the widget endpoints.
	CORSOrigins []string
}

// NewRouter constructs and returns an HTTP handler that serves the captcha
// API.
//
// Routes:
//
//	GET    /healthz                   → health
//	GET    /api/widget/captcha/{id}   → widgetHandler.Captcha
//	POST   /api/widget/verify         → widgetHandler.Verify
//	POST   /api/widget/validate       → widgetHandler.Validate
//	GET    /api/widget/script         → widgetHandler.Script
//	GET    /api/captchas              → captchaHandler.List   (operator)
//	POST   /api/captchas              → captchaHandler.Create (operator)
//	GET    /api/captchas/{id}         → captchaHandler.Get    (operator)
//	PUT    /api/captchas/{id}         → captchaHandler.Update (operator)
//	DELETE /api/captchas/{id}         → captchaHandler.Delete (operator)
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. AllowContentType("application/json") for requests with a body
//  3. WithRequestLogging(logger)
//  4. CORS on /api/widget, OperatorAuth on /api/captchas
func NewRouter(
	captchaHandler *CaptchaHandler,
	widgetHandler *WidgetHandler,
	health http.Handler,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Method(http.MethodGet, "/healthz", health)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints, called cross-origin from embedding pages
		r.Route("/widget", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         300,
			}))
			r.Get("/captcha/{id}", widgetHandler.Captcha)
			r.Post("/verify", widgetHandler.Verify)
			r.Post("/validate", widgetHandler.Validate)
			r.Get("/script", widgetHandler.Script)
		})

		// Protected group: requires an operator certificate or token
		r.Route("/captchas", func(r chi.Router) {
			r.Use(middleware.OperatorAuth(cfg.OperatorSecret))
			r.Get("/", captchaHandler.List)
			r.Post("/", captchaHandler.Create)
			r.Get("/{id}", captchaHandler.Get)
			r.Put("/{id}", captchaHandler.Update)
			r.Delete("/{id}", captchaHandler.Delete)
		})
	})

	return r
}
