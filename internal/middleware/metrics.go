package middleware

import (
	"errors"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// InitMetrics builds the HTTP metrics collector for serviceName. It registers
// with the default Prometheus registry, so the domain counters from
// observability are exposed on the same endpoint. Calling it twice in one
// process reuses the collectors already registered.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.NewWithRegistry(reuseRegisterer{prometheus.DefaultRegisterer}, serviceName, "http", "", nil)
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}

// reuseRegisterer treats an already-registered collector as success.
type reuseRegisterer struct {
	prometheus.Registerer
}

func (r reuseRegisterer) Register(c prometheus.Collector) error {
	err := r.Registerer.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

func (r reuseRegisterer) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}
