// Package main provides the Conductor API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/conductor/pkg/approval"
	"github.com/dukex/conductor/pkg/cmd"
	"github.com/dukex/conductor/pkg/notify"
	"github.com/dukex/conductor/pkg/persistence"
	"github.com/dukex/conductor/pkg/registry"
	"github.com/dukex/conductor/pkg/tracker"
	"github.com/dukex/conductor/pkg/web"
	"github.com/dukex/conductor/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	bus         notify.Bus
	registry    *registry.Registry
	gate        approval.Gate
	followUp    tracker.FollowUpScheduler
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	pers persistence.Persistence,
	bus notify.Bus,
	reg *registry.Registry,
	gate approval.Gate,
	followUp tracker.FollowUpScheduler,
) *API {
	return &API{
		logger:      logger,
		persistence: pers,
		bus:         bus,
		registry:    reg,
		gate:        gate,
		followUp:    followUp,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	emitter := cmd.NewEmitter(context.Background(), a.logger, "conductor-api")

	trk := tracker.NewTracker(a.persistence.RequestRepository(), a.bus, emitter, a.logger, a.followUp)
	workflows := workflow.NewRepository(a.persistence.WorkflowRepository())
	executor := workflow.NewExecutor(workflows, a.registry, a.gate, a.logger)

	handlers := web.NewHandlers(trk, workflows, executor, a.registry, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Conductor API")
	})

	r := app.Group("/requests")
	r.Post("/", handlers.EnqueueRequest)
	r.Get("/due", handlers.GetDueRequests)
	r.Get("/resolved", handlers.GetResolvedRequests)
	r.Get("/:id", handlers.GetRequest)
	r.Post("/:id/progress", handlers.ProgressRequest)
	r.Post("/:id/resolve", handlers.ResolveRequest)
	r.Post("/:id/fail", handlers.FailRequest)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/approval", handlers.RequestApproval)
	w.Post("/:id/apply", handlers.ApplyApproval)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
