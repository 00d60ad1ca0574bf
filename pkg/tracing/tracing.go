package tracing

import (
	"fmt"
	"net/http"
	"strings"

	"contrib.go.opencensus.io/exporter/aws"
	"contrib.go.opencensus.io/exporter/jaeger"
	"contrib.go.opencensus.io/exporter/prometheus"
	"contrib.go.opencensus.io/exporter/stackdriver"
	"contrib.go.opencensus.io/exporter/zipkin"
	"contrib.go.opencensus.io/integrations/ocsql"
	datadog "github.com/DataDog/opencensus-go-exporter-datadog"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/pkg/logger"
)

// Provider owns the exporters registered by Init
type Provider struct {
	logger         logger.Logger
	metricsHandler http.Handler
	closers        []func()
}

// MetricsHandler serves the Prometheus scrape endpoint, nil unless prometheus is enabled
func (p *Provider) MetricsHandler() http.Handler {
	return p.metricsHandler
}

// Shutdown flushes and stops every exporter, in reverse registration order
func (p *Provider) Shutdown() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

type traceExporterFunc func(p *Provider, cfg *config.TracingConfig) error

var traceExporters = map[string]traceExporterFunc{
	"jaeger":      initJaegerExporter,
	"zipkin":      initZipkinExporter,
	"stackdriver": initStackdriverExporter,
	"datadog":     initDatadogExporter,
	"xray":        initXRayExporter,
}

var metricsExporters = map[string]traceExporterFunc{
	"prometheus":  initPrometheusExporter,
	"stackdriver": initStackdriverExporter,
	"datadog":     initDatadogExporter,
}

// Init configures sampling, registers the configured exporters and the views
// of the HTTP server, the database driver and the designer itself. A disabled
// config returns an empty Provider.
func Init(cfg *config.TracingConfig, log logger.Logger) (*Provider, error) {
	p := &Provider{logger: log}
	if cfg == nil || !cfg.Enabled {
		return p, nil
	}

	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.ProbabilitySampler(cfg.SamplingProbability),
	})

	if name := strings.TrimSpace(cfg.TraceExporter); name != "" && name != "none" {
		start, ok := traceExporters[name]
		if !ok {
			return nil, fmt.Errorf("unsupported trace exporter: %s", name)
		}
		if err := start(p, cfg); err != nil {
			p.Shutdown()
			return nil, err
		}
	}

	if err := p.initMetrics(cfg); err != nil {
		p.Shutdown()
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"trace_exporter":   cfg.TraceExporter,
		"metrics_exporter": cfg.MetricsExporter,
	}).Info("OpenCensus initialized")
	return p, nil
}

func (p *Provider) initMetrics(cfg *config.TracingConfig) error {
	if cfg.MetricsExporter == "" || cfg.MetricsExporter == "none" {
		return nil
	}

	seen := map[string]bool{}
	for _, name := range strings.Split(cfg.MetricsExporter, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		start, ok := metricsExporters[name]
		if !ok {
			return fmt.Errorf("unsupported metrics exporter: %s", name)
		}
		// stackdriver and datadog export traces and stats from one exporter
		if name == cfg.TraceExporter {
			continue
		}
		if err := start(p, cfg); err != nil {
			return fmt.Errorf("failed to initialize %s metrics exporter: %w", name, err)
		}
	}

	if err := RegisterViews(); err != nil {
		return err
	}
	if err := view.Register(ocsql.DefaultViews...); err != nil {
		return fmt.Errorf("failed to register database views: %w", err)
	}
	return nil
}

func initJaegerExporter(p *Provider, cfg *config.TracingConfig) error {
	if cfg.JaegerEndpoint == "" {
		return fmt.Errorf("jaeger endpoint is required for the jaeger exporter")
	}

	je, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: cfg.JaegerEndpoint,
		Process:           jaeger.Process{ServiceName: cfg.ServiceName},
		OnError: func(err error) {
			p.logger.WithField("error", err.Error()).Warn("Jaeger exporter error")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	trace.RegisterExporter(je)
	p.closers = append(p.closers, func() {
		trace.UnregisterExporter(je)
		je.Flush()
	})
	return nil
}

func initZipkinExporter(p *Provider, cfg *config.TracingConfig) error {
	if cfg.ZipkinEndpoint == "" {
		return fmt.Errorf("zipkin endpoint is required for the zipkin exporter")
	}

	reporter := zipkinhttp.NewReporter(cfg.ZipkinEndpoint)
	ze := zipkin.NewExporter(reporter, nil)
	trace.RegisterExporter(ze)
	p.closers = append(p.closers, func() {
		trace.UnregisterExporter(ze)
		_ = reporter.Close()
	})
	return nil
}

func initStackdriverExporter(p *Provider, cfg *config.TracingConfig) error {
	if cfg.StackdriverProjectID == "" {
		return fmt.Errorf("stackdriver project id is required for the stackdriver exporter")
	}

	se, err := stackdriver.NewExporter(stackdriver.Options{
		ProjectID:    cfg.StackdriverProjectID,
		MetricPrefix: cfg.ServiceName,
		OnError: func(err error) {
			p.logger.WithField("error", err.Error()).Warn("Stackdriver exporter error")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create stackdriver exporter: %w", err)
	}

	trace.RegisterExporter(se)
	view.RegisterExporter(se)
	p.closers = append(p.closers, func() {
		trace.UnregisterExporter(se)
		view.UnregisterExporter(se)
		se.Flush()
	})
	return nil
}

func initDatadogExporter(p *Provider, cfg *config.TracingConfig) error {
	if cfg.DatadogAgentAddress == "" {
		return fmt.Errorf("datadog agent address is required for the datadog exporter")
	}

	de, err := datadog.NewExporter(datadog.Options{
		Service:   cfg.ServiceName,
		TraceAddr: cfg.DatadogAgentAddress,
		OnError: func(err error) {
			p.logger.WithField("error", err.Error()).Warn("Datadog exporter error")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create datadog exporter: %w", err)
	}

	trace.RegisterExporter(de)
	view.RegisterExporter(de)
	p.closers = append(p.closers, func() {
		trace.UnregisterExporter(de)
		view.UnregisterExporter(de)
		de.Stop()
	})
	return nil
}

func initXRayExporter(p *Provider, cfg *config.TracingConfig) error {
	if cfg.XRayRegion == "" {
		return fmt.Errorf("aws region is required for the xray exporter")
	}

	xe, err := aws.NewExporter(aws.WithRegion(cfg.XRayRegion), aws.WithVersion("latest"))
	if err != nil {
		return fmt.Errorf("failed to create xray exporter: %w", err)
	}

	trace.RegisterExporter(xe)
	p.closers = append(p.closers, func() {
		trace.UnregisterExporter(xe)
		xe.Flush()
	})
	return nil
}

func initPrometheusExporter(p *Provider, cfg *config.TracingConfig) error {
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: strings.ReplaceAll(cfg.ServiceName, "-", "_"),
		OnError: func(err error) {
			p.logger.WithField("error", err.Error()).Warn("Prometheus exporter error")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	view.RegisterExporter(pe)
	p.metricsHandler = pe
	p.closers = append(p.closers, func() { view.UnregisterExporter(pe) })
	return nil
}
