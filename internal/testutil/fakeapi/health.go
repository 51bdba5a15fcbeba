package fakeapi

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// HealthOutput - ответ GET /health
type HealthOutput struct {
	Body struct {
		Status string `json:"status" example:"healthy" doc:"Health status of the service"`
	}
}

func (s *Server) registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check endpoint",
		Tags:        []string{"health"},
		Middlewares: huma.Middlewares{s.logRequest},
	}, s.healthCheck)
}

func (s *Server) healthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "healthy"
	return out, nil
}

// logRequest пишет в лог каждый запрос к huma-операциям.
func (s *Server) logRequest(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	method := ctx.Method()
	path := ctx.URL().Path

	next(ctx)

	s.log.Debug("HTTP request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", ctx.Status()),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	)
}
