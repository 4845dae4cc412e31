package exporter

import (
	"log/slog"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/manifest"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/notify"
)

// Runner is an Exporter together with the resources Open acquired for it.
type Runner struct {
	*Exporter
	store     *manifest.Store
	publisher notify.Publisher
}

// Open validates cfg, loads the token and wires every side channel cfg
// enables. A side channel that cannot be opened is logged and left disabled.
// Close must be called when done.
func Open(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	token, err := cfg.LoadToken()
	if err != nil {
		return nil, err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
	}

	client := confluence.NewClientFromConfig(cfg, token,
		confluence.WithLogger(logger),
		confluence.WithRecorder(recorder))

	r := &Runner{publisher: notify.NoopPublisher{}}
	opts := []Option{WithLogger(logger), WithRecorder(recorder)}

	if cfg.Manifest.Path != "" {
		store, err := manifest.Open(cfg.Manifest.Path)
		if err != nil {
			logger.Warn("Manifest disabled", logfields.Path(cfg.Manifest.Path), logfields.Error(err))
		} else {
			r.store = store
			opts = append(opts, WithManifest(store))
		}
	}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			logger.Warn("Run notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			r.publisher = pub
			opts = append(opts, WithPublisher(pub))
		}
	}

	r.Exporter = New(cfg, client, opts...)
	return r, nil
}

// Close releases the manifest database and the NATS connection.
func (r *Runner) Close() error {
	var firstErr error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			firstErr = err
		}
	}
	if err := r.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
