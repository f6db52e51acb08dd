package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/phetsims/ct-runner/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

// Service hosts the client's sidecar HTTP servers: a health probe and a
// Prometheus metrics endpoint.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Service{
		Healthz: &HealthzServer{log: log},
		Metrics: &MetricsServer{},
		log:     log,
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	go func() {
		addr := net.JoinHostPort(HealthzHost, HealthzPort)
		s.log.WithField("addr", addr).Info("starting healthz server")
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("error starting healthz server")
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		addr := net.JoinHostPort(MetricsHost, MetricsPort)
		s.log.WithField("addr", addr).Info("starting metrics server")
		if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("error starting metrics server")
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
