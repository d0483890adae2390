package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	ServiceName    string
	JaegerEndpoint string
	// Registerer defaults to the global prometheus registry.
	Registerer promclient.Registerer
}

type Observability struct {
	meterProvider    *metric.MeterProvider
	tracerProvider   *sdktrace.TracerProvider
	meter            otelmetric.Meter
	tracer           trace.Tracer
	workflowCounter  otelmetric.Int64Counter
	workflowDuration otelmetric.Float64Histogram
	stepDuration     otelmetric.Float64Histogram
}

func New(opts Options) *Observability {
	o := &Observability{}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.JaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
		}
	}
	o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer(opts.ServiceName)

	var exporterOpts []prometheus.Option
	if opts.Registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(o.meterProvider)

	o.meter = o.meterProvider.Meter(opts.ServiceName)

	o.workflowCounter, _ = o.meter.Int64Counter(
		"workflows.processed",
		otelmetric.WithDescription("Number of workflow runs"),
	)

	o.workflowDuration, _ = o.meter.Float64Histogram(
		"workflows.duration",
		otelmetric.WithDescription("Workflow run duration"),
		otelmetric.WithUnit("ms"),
	)

	o.stepDuration, _ = o.meter.Float64Histogram(
		"workflows.step.duration",
		otelmetric.WithDescription("Duration of a single orchestrated remote step"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// Tracer returns the service tracer; spans are dropped when no exporter is configured.
func (o *Observability) Tracer() trace.Tracer {
	if o.tracer == nil {
		return otel.Tracer("esign-workflows")
	}
	return o.tracer
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordWorkflow records one finished workflow run.
func (o *Observability) RecordWorkflow(ctx context.Context, workflow, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
	if o.workflowCounter != nil {
		o.workflowCounter.Add(ctx, 1, attrs)
	}
	if o.workflowDuration != nil {
		o.workflowDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordStep(ctx context.Context, step, status string, duration time.Duration) {
	if o.stepDuration != nil {
		o.stepDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("step", step),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
