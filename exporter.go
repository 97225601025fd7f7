// Package sevexport exports the accounting data of a sevDesk account: every
// model of an endpoint catalog as a JSON file, plus the invoice, voucher and
// credit note documents of one month.
//
//	exp, err := sevexport.New(
//		sevexport.WithTransport(transport.New(token)),
//		sevexport.WithSink(folderSink),
//	)
//	summary, err := exp.Export(ctx, month)
package sevexport

import (
	"context"
	"fmt"
	"path"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/sevexport/internal/attachments"
	"github.com/agentstation/sevexport/internal/enumerate"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
	"github.com/agentstation/sevexport/pkg/period"
)

// Transport is the HTTP capability an Exporter needs.
type Transport interface {
	enumerate.TextGetter
	attachments.Downloader
}

// Exporter runs exports and reports progress through hooks
type Exporter interface {
	// Export fetches the catalog, writes every model and the month's attachments
	Export(ctx context.Context, month period.Month) (*Summary, error)

	// Catalog returns the catalog the exporter uses
	Catalog() *endpoints.Catalog

	// OnModelFetched registers a callback for fetched models
	OnModelFetched(ModelFetchedHook)

	// OnAttachmentSaved registers a callback for written attachments
	OnAttachmentSaved(AttachmentSavedHook)

	// OnAttachmentSkipped registers a callback for attachments that failed to download
	OnAttachmentSkipped(AttachmentSkippedHook)
}

// exporter is the internal implementation of the Exporter interface
type exporter struct {
	config *config
	*hooks
}

// New creates a new Exporter with the given options
func New(opts ...Option) (Exporter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	if cfg.transport == nil {
		return nil, errors.NewConfigError("exporter", "a transport is required", nil)
	}
	if cfg.sink == nil {
		return nil, errors.NewConfigError("exporter", "a sink is required", nil)
	}
	if cfg.catalog == nil {
		catalog, err := endpoints.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default catalog: %w", err)
		}
		cfg.catalog = catalog
	}

	return &exporter{config: cfg, hooks: newHooks()}, nil
}

// Catalog returns the catalog the exporter uses
func (e *exporter) Catalog() *endpoints.Catalog {
	return e.config.catalog
}

// Export runs one export. Pagination and write failures abort the run;
// a failed attachment download is logged, reported in the Summary and skipped.
func (e *exporter) Export(ctx context.Context, month period.Month) (*Summary, error) {
	cfg := e.config

	window := month.Window()
	window.ExclusiveEnd = cfg.exclusiveEnd

	summary := &Summary{
		RunID:       uuid.NewString(),
		Month:       month.String(),
		Window:      window,
		Folder:      cfg.folder,
		StartedAt:   utc.New(cfg.now()),
		Models:      []ModelCount{},
		Attachments: []AttachmentRecord{},
	}

	ctx = logging.WithRun(ctx, summary.RunID)
	logger := logging.Ctx(ctx)
	logger.Info().
		Str("month", summary.Month).
		Str("window", window.String()).
		Int("models", cfg.catalog.Len()).
		Msg("Starting export")

	if err := cfg.sink.WriteJSON(ctx, constants.OptionsName, cfg.catalog); err != nil {
		return nil, err
	}

	store, err := e.fetch(ctx, summary)
	if err != nil {
		return nil, err
	}

	if cfg.skipDocuments {
		logger.Info().Msg("Skipping documents")
	} else if err := e.exportAttachments(ctx, store, window, summary); err != nil {
		return nil, err
	}

	summary.FinishedAt = utc.New(cfg.now())
	if err := cfg.sink.WriteJSON(ctx, constants.SummaryName, summary); err != nil {
		return nil, err
	}

	logger.Info().
		Int("entities", summary.Entities()).
		Int("attachments", len(summary.Attachments)).
		Int("skipped", len(summary.Skipped)).
		Dur("duration", summary.Duration()).
		Msg("Export finished")

	return summary, nil
}

func (e *exporter) fetch(ctx context.Context, summary *Summary) (*entities.Store, error) {
	cfg := e.config
	pager := enumerate.NewPager(cfg.transport, cfg.pageSize)
	enumerator := enumerate.New(cfg.catalog, pager, cfg.baseURL)

	return enumerator.Run(ctx, func(ctx context.Context, set *entities.Set) error {
		if err := cfg.sink.WriteJSON(ctx, set.Model(), set); err != nil {
			return err
		}
		summary.Models = append(summary.Models, ModelCount{Model: set.Model(), Count: set.Len()})
		e.modelFetched(set)
		return nil
	})
}

func (e *exporter) exportAttachments(ctx context.Context, store *entities.Store, window period.Window, summary *Summary) error {
	cfg := e.config
	logger := logging.Ctx(ctx)

	selection := attachments.Select(store, window)
	for _, miss := range selection.Misses {
		logger.Warn().Str("source", miss.Source).Msg(miss.Reason)
	}
	summary.Misses = selection.Misses

	logger.Info().Int("attachments", len(selection.Requests)).Msg("Downloading documents")

	resolver := attachments.NewResolver(cfg.transport, cfg.baseURL)
	for _, req := range selection.Requests {
		att, err := resolver.Resolve(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn().Err(err).Str("source", req.Source).Str("name", req.DisplayName).Msg("Attachment skipped")
			summary.Skipped = append(summary.Skipped, SkippedAttachment{
				Source:      req.Source,
				Kind:        req.Kind.String(),
				DisplayName: req.DisplayName,
				Reason:      err.Error(),
			})
			e.attachmentSkipped(req, err)
			continue
		}

		if err := cfg.sink.WriteBinary(ctx, path.Join(constants.DocumentsFolder, att.FileName), att.Data); err != nil {
			return err
		}

		summary.Attachments = append(summary.Attachments, AttachmentRecord{
			Source:   req.Source,
			Kind:     req.Kind.String(),
			FileName: att.FileName,
			Bytes:    len(att.Data),
		})
		e.attachmentSaved(att)
	}

	return nil
}
