package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/zjrosen/regform/internal/config"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/metrics"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/tracing"
)

// runtime holds the ambient services a command needs: logging, tracing and
// metrics.
type runtime struct {
	provider *tracing.Provider
	metrics  *metrics.Metrics
	server   *metrics.Server
	cleanups []func()
}

// newRuntime validates the loaded configuration and starts logging, tracing
// and the optional metrics server. The caller must Close it.
func newRuntime(logPrefix string) (*runtime, error) {
	if configErr != nil {
		return nil, configErr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rt := &runtime{}

	if os.Getenv("REGFORM_DEBUG") != "" || debugFlag {
		logPath := os.Getenv("REGFORM_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, logPrefix)
		if err != nil {
			return nil, fmt.Errorf("initializing logging: %w", err)
		}
		rt.cleanups = append(rt.cleanups, cleanup)
		log.Info(log.CatConfig, "regform starting", "version", version, "config", viper.ConfigFileUsed())
	}

	provider, err := tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	rt.provider = provider

	registry := prometheus.NewRegistry()
	rt.metrics = metrics.New(registry)
	if cfg.Metrics.Addr != "" {
		rt.server = metrics.NewServer(cfg.Metrics.Addr, registry)
		if err := rt.server.Start(); err != nil {
			rt.server = nil
			rt.Close()
			return nil, fmt.Errorf("starting metrics server: %w", err)
		}
	}

	return rt, nil
}

// sessionOptions wires metrics and tracing into a registration session.
func (rt *runtime) sessionOptions() []registration.Option {
	return []registration.Option{
		registration.WithMetrics(rt.metrics),
		registration.WithTracer(rt.provider.Tracer()),
	}
}

// Close stops the metrics server, flushes spans and closes the log.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.server != nil {
		if err := rt.server.Stop(ctx); err != nil {
			log.ErrorErr(log.CatMetrics, "stopping metrics server", err)
		}
	}
	if rt.provider != nil {
		if err := rt.provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "flushing traces", err)
		}
	}
	for i := len(rt.cleanups) - 1; i >= 0; i-- {
		rt.cleanups[i]()
	}
}

func tracingConfig(c config.TracingConfig) tracing.Config {
	return tracing.Config{
		Enabled:      c.Enabled,
		Exporter:     c.Exporter,
		FilePath:     c.FilePath,
		OTLPEndpoint: c.OTLPEndpoint,
		SampleRate:   c.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	}
}
