// Package api assembles the upload service's HTTP surface: the tus endpoint,
// processing control, status queries and health checks, wrapped in the
// standard middleware stack.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/upload-lab/internal/config"
	"github.com/JaimeStill/upload-lab/internal/infrastructure"
	"github.com/JaimeStill/upload-lab/pkg/middleware"
	"github.com/JaimeStill/upload-lab/pkg/routes"
)

// Module is the wired HTTP surface and the domain systems behind it.
type Module struct {
	Runtime *Runtime
	Domain  *Domain
	Handler http.Handler
}

// NewModule wires the domain systems and routes over infra.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) *Module {
	runtime := NewRuntime(infra)
	domain := NewDomain(runtime, cfg)

	rs := routes.New(runtime.Logger)
	registerRoutes(rs, runtime, domain, &cfg.OpenAPI)

	mw := middleware.New()
	mw.Use(middleware.TrimSlash())
	mw.Use(middleware.Logger(runtime.Logger))
	mw.Use(middleware.CORS(&cfg.CORS))

	return &Module{
		Runtime: runtime,
		Domain:  domain,
		Handler: mw.Apply(rs.Build()),
	}
}

// Start binds processing jobs to the lifecycle coordinator.
func (m *Module) Start() error {
	if err := m.Domain.Processing.Start(m.Runtime.Lifecycle); err != nil {
		return fmt.Errorf("processing start failed: %w", err)
	}
	return nil
}
