package api

import (
	"net/http"

	"github.com/JaimeStill/upload-lab/internal/transfer"
	"github.com/JaimeStill/upload-lab/pkg/handlers"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
	"github.com/JaimeStill/upload-lab/pkg/openapi"
	"github.com/JaimeStill/upload-lab/pkg/routes"
)

// UploadsPrefix is where the tus endpoint is mounted.
const UploadsPrefix = "/uploads"

// LivenessMessage is the body served at the root path.
const LivenessMessage = "Upload server running"

// SpecPath serves the generated OpenAPI document.
const SpecPath = "/openapi.json"

func registerRoutes(rs routes.System, runtime *Runtime, domain *Domain, docs *openapi.Config) {
	transferHandler := transfer.NewHandler(domain.Transfers, runtime.Logger, UploadsPrefix)
	rs.RegisterGroup(transferHandler.Routes())

	apiHandler := NewHandler(domain.Processing, domain.Tracking, runtime.Logger)
	rs.RegisterGroup(apiHandler.Routes())

	rs.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/{$}",
		Handler: handleLiveness,
		OpenAPI: &openapi.Operation{
			Summary: "Liveness message",
			Tags:    []string{"Infrastructure"},
			Responses: map[int]*openapi.Response{
				200: {Description: LivenessMessage},
			},
		},
	})

	rs.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/healthz",
		Handler: handleHealthCheck,
		OpenAPI: &openapi.Operation{
			Summary: "Health check endpoint",
			Tags:    []string{"Infrastructure"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Service is healthy"},
			},
		},
	})

	rs.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/readyz",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			handleReadinessCheck(w, runtime.Lifecycle)
		},
		OpenAPI: &openapi.Operation{
			Summary: "Readiness check endpoint",
			Tags:    []string{"Infrastructure"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Service is ready"},
				503: {Description: "Service not ready"},
			},
		},
	})

	spec, err := buildSpec(docs, rs)
	if err != nil {
		runtime.Logger.Error("openapi spec generation failed", "error", err)
		return
	}
	rs.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: SpecPath,
		Handler: serveSpec(spec),
	})
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	handlers.RespondText(w, http.StatusOK, LivenessMessage)
}

// handleHealthCheck responds with OK status for health monitoring.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	handlers.RespondText(w, http.StatusOK, "OK")
}

func handleReadinessCheck(w http.ResponseWriter, ready lifecycle.ReadinessChecker) {
	if !ready.Ready() {
		handlers.RespondText(w, http.StatusServiceUnavailable, "NOT READY")
		return
	}
	handlers.RespondText(w, http.StatusOK, "READY")
}
