package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

// Handlers bundles everything the route table dispatches to.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Blog   *handlers.BlogHandler
	Upload *handlers.UploadHandler
	Health *handlers.HealthHandler
}

// Setup registers the HTTP surface. limiterStorage may be nil for
// in-process counters.
func Setup(
	app *fiber.App,
	h Handlers,
	tokens *services.TokenService,
	gatherer prometheus.Gatherer,
	limiterStorage fiber.Storage,
) {
	app.Get("/health", h.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))

	// Credential flows: 10 req/min per IP
	authLimit := middleware.RateLimit(10, time.Minute, limiterStorage)
	app.Post("/signup", authLimit, h.Auth.Signup)
	app.Post("/signin", authLimit, h.Auth.Signin)
	app.Post("/google-auth", authLimit, h.Auth.GoogleAuth)

	// Everything else: 60 req/min per IP
	apiLimit := middleware.RateLimit(60, time.Minute, limiterStorage)
	app.Get("/get-upload-url", apiLimit, h.Upload.GetUploadURL)

	session := middleware.SessionRequired(tokens)
	app.Post("/check-duplicate-title", apiLimit, session, h.Blog.CheckDuplicateTitle)
	app.Post("/create-blog", apiLimit, session, h.Blog.CreateBlog)
}
