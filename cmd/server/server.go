package main

import (
	"time"

	"github.com/JaimeStill/upload-lab/internal/api"
	"github.com/JaimeStill/upload-lab/internal/config"
	"github.com/JaimeStill/upload-lab/internal/infrastructure"
	"github.com/JaimeStill/upload-lab/internal/server"
)

// Server coordinates the lifecycle of all subsystems.
type Server struct {
	infra  *infrastructure.Infrastructure
	module *api.Module
	http   server.System
}

// NewServer creates and initializes the service with all subsystems.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	module := api.NewModule(cfg, infra)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"tracking", cfg.Tracking.Backend,
		"pinning", cfg.Pinning.Backend,
		"max_upload_size", cfg.Storage.MaxUploadSize,
	)

	return &Server{
		infra:  infra,
		module: module,
		http:   server.New(&cfg.Server, module.Handler, cfg.ShutdownTimeoutDuration(), infra.Logger),
	}, nil
}

// Start begins all subsystems and returns once the listener is bound.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.module.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown gracefully stops all subsystems within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
