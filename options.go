package sevexport

import (
	"time"

	"github.com/agentstation/sevexport/internal/sink"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/errors"
)

// Option is a function that configures an Exporter
type Option func(*config) error

// config holds the resolved options of an Exporter
type config struct {
	transport     Transport
	sink          sink.Sink
	catalog       *endpoints.Catalog
	baseURL       string
	pageSize      int
	exclusiveEnd  bool
	skipDocuments bool
	folder        string
	now           func() time.Time
}

func defaultConfig() *config {
	return &config{
		baseURL:  constants.DefaultBaseURL,
		pageSize: constants.PageSize,
		now:      time.Now,
	}
}

// WithTransport configures the HTTP capability used for every request
func WithTransport(t Transport) Option {
	return func(c *config) error {
		if t == nil {
			return errors.NewConfigError("exporter", "transport cannot be nil", nil)
		}
		c.transport = t
		return nil
	}
}

// WithSink configures where artifacts are written
func WithSink(s sink.Sink) Option {
	return func(c *config) error {
		if s == nil {
			return errors.NewConfigError("exporter", "sink cannot be nil", nil)
		}
		c.sink = s
		return nil
	}
}

// WithCatalog configures the models to export. The embedded default is used otherwise.
func WithCatalog(catalog *endpoints.Catalog) Option {
	return func(c *config) error {
		c.catalog = catalog
		return nil
	}
}

// WithBaseURL configures the API root, e.g. https://my.sevdesk.de/api/v1
func WithBaseURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewConfigError("exporter", "base URL cannot be empty", nil)
		}
		c.baseURL = url
		return nil
	}
}

// WithPageSize configures the pagination limit
func WithPageSize(size int) Option {
	return func(c *config) error {
		if size <= 0 {
			return errors.NewConfigError("exporter", "page size must be positive", nil)
		}
		c.pageSize = size
		return nil
	}
}

// WithExclusiveEnd excludes the first instant of the following month from the window
func WithExclusiveEnd(enabled bool) Option {
	return func(c *config) error {
		c.exclusiveEnd = enabled
		return nil
	}
}

// WithSkipDocuments exports the model files only
func WithSkipDocuments(enabled bool) Option {
	return func(c *config) error {
		c.skipDocuments = enabled
		return nil
	}
}

// WithFolder records the export folder in the Summary
func WithFolder(folder string) Option {
	return func(c *config) error {
		c.folder = folder
		return nil
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}
