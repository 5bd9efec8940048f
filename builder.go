package goOIDC

import (
	"context"
	"errors"

	"github.com/MrEthical07/goOIDC/internal/logger"
	"github.com/MrEthical07/goOIDC/store"
	"github.com/MrEthical07/goOIDC/transport"
	"go.uber.org/zap"
)

// Builder assembles an Engine. Each Builder can be built once.
type Builder struct {
	config Config

	transport Transport
	store     SettingsStore
	auditSink AuditSink
	logger    *zap.Logger

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAPIServer sets Config.APIServer for the default transport.
func (b *Builder) WithAPIServer(origin string) *Builder {
	b.config.APIServer = origin
	return b
}

// WithTransport replaces the default HTTP transport.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithSettingsStore sets where remembered credentials are written. Without
// it an in-memory store is used.
func (b *Builder) WithSettingsStore(s SettingsStore) *Builder {
	b.store = s
	return b
}

// WithAuditSink sets the sink that receives audit events when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. Without it one is built from Config.Logging,
// or logging is disabled.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tr := b.transport
	if tr == nil {
		if cfg.APIServer == "" {
			return nil, ErrAPIServerRequired
		}
		tr = transport.NewClient(cfg.APIServer, cfg.HTTP.Timeout, transport.WithMaxBodyBytes(cfg.HTTP.MaxResponseBytes))
	}

	st := b.store
	if st == nil {
		st = store.NewMemory()
	}

	log := b.logger
	switch {
	case log != nil:
	case cfg.Logging.Enabled:
		log = logger.New(logger.Config{
			Env:         cfg.Logging.Env,
			Level:       cfg.Logging.Level,
			ServiceName: cfg.Logging.ServiceName,
		})
	default:
		log = zap.NewNop()
	}

	lifetime, stop := context.WithCancel(context.Background())

	e := &Engine{
		config:    cfg,
		transport: tr,
		store:     st,
		logger:    log,
		metrics:   NewMetrics(cfg.Metrics),
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink, log),
		state:     newFlowState(),
		lifetime:  lifetime,
		stop:      stop,
	}

	b.built = true
	return e, nil
}
