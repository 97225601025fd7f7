// Package app provides the application context and dependency management
// for the sevexport CLI: configuration, logging, and construction of the
// transport, catalog and sinks an export run needs.
package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sevexport/internal/sink"
	"github.com/agentstation/sevexport/internal/transport"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/errors"
)

// App represents the sevexport application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config      *Config
	logger      *zerolog.Logger
	fixedLogger bool

	out io.Writer
	now func() time.Time
}

// New creates a new App instance with the given version information.
// Flags parsed later by Execute override the loaded configuration.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
		now:     time.Now,
	}

	config, err := LoadConfig(nil)
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Catalog returns the endpoint catalog from --endpoints, or the built-in one.
func (a *App) Catalog() (*endpoints.Catalog, error) {
	if a.config.EndpointsFile == "" {
		return endpoints.Default()
	}
	catalog, err := endpoints.Load(a.config.EndpointsFile)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("file", a.config.EndpointsFile).
		Int("models", catalog.Len()).
		Msg("Loaded endpoint catalog")
	return catalog, nil
}

// Transport creates the API client for the configured token.
func (a *App) Transport() (*transport.Client, error) {
	if a.config.Token == "" {
		return nil, errors.NewConfigError("token",
			"set --token or SEVDESK_API_TOKEN", errors.ErrTokenRequired)
	}
	auth, err := transport.NewAuthenticator(transport.AuthScheme(a.config.AuthScheme))
	if err != nil {
		return nil, err
	}
	return transport.New(a.config.Token,
		transport.WithAuthenticator(auth),
		transport.WithRateLimit(a.config.RateLimit, constants.DefaultRateBurst),
		transport.WithTimeout(a.config.Timeout),
	), nil
}

// Sink creates the export folder and, when configured, the bucket mirror.
// It returns the sink to write to and the export folder.
func (a *App) Sink(ctx context.Context, now time.Time) (sink.Sink, string, error) {
	folder, err := sink.NewFolderSink(a.config.Folder, now)
	if err != nil {
		return nil, "", err
	}
	if !a.config.S3.Enabled() {
		return folder, folder.Root(), nil
	}

	bucket, err := sink.NewBucketSink(a.config.S3.BucketConfig(folder.Root()))
	if err != nil {
		return nil, "", err
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, "", err
	}
	a.logger.Info().
		Str("bucket", a.config.S3.Bucket).
		Str("prefix", bucket.Key("")).
		Msg("Mirroring export to bucket")
	return sink.Tee{folder, bucket}, folder.Root(), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithLogger sets a custom logger. It is kept when flags are parsed.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.fixedLogger = true
		return nil
	}
}

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithClock sets the time source used for the export folder and the default month.
func WithClock(now func() time.Time) Option {
	return func(a *App) error {
		a.now = now
		return nil
	}
}
