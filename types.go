package assoc

import (
	"github.com/go-logr/logr"
	"github.com/goliatone/go-assoc/pkg/activity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-assoc"

// Evaluator runs rule expressions against a RuleContext.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is an expression compiled once and run per context.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures a Registry.
type Option func(*config)

type config struct {
	logger       logr.Logger
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	activity     *activity.Emitter
	metrics      MetricsRecorder
	tracer       trace.Tracer
	sync         Sync
}

func applyOptions(opts []Option) config {
	cfg := config{
		logger:  logr.Discard(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(instrumentationName)
	}
	return cfg
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithEvaluator configures the engine used for WithRule expressions. The
// default is the expr engine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(cfg *config) {
		if recorder == nil {
			cfg.metrics = noopMetrics{}
			return
		}
		cfg.metrics = recorder
	}
}

// WithTracerProvider sets the provider used for sync spans. The global
// provider is used otherwise.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *config) {
		if provider == nil {
			return
		}
		cfg.tracer = provider.Tracer(instrumentationName)
	}
}

// WithDefaultSync sets the Sync used by types that do not declare their own.
func WithDefaultSync(s Sync) Option {
	return func(cfg *config) {
		cfg.sync = s
	}
}
