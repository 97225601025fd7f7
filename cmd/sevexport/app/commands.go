package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/sevexport"
	"github.com/agentstation/sevexport/internal/attachments"
	"github.com/agentstation/sevexport/internal/cmd/output"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
	"github.com/agentstation/sevexport/pkg/period"
)

// NewExportCommand creates the export command.
func (a *App) NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all models and the documents of one month",
		Long: `Export fetches every model of the endpoint catalog and writes it as
<Model>.json into a new "<folder>/<yyyy-MM-dd HH-mm>" directory. The
invoices, vouchers and credit notes of the requested month are downloaded
into its "Dokumente" subfolder.

Without --month the previous calendar month is exported.`,
		Example: `  sevexport export --token $SEVDESK_API_TOKEN --month 05 --year 2024
  sevexport export --month 2024-05 --folder ./exports
  sevexport export --skip-documents --models Invoice,InvoicePos`,
		Args: cobra.NoArgs,
		RunE: a.runExport,
	}

	flags := cmd.Flags()
	flags.String("token", "", "sevDesk API token")
	flags.String("folder", ".", "directory that receives the timestamped export folder")
	flags.String("month", "", "month to export: 1-12, YYYY-MM or MM/YYYY (default previous month)")
	flags.Int("year", 0, "year of --month (default current year)")
	flags.Bool("exclusive-end", false, "exclude the first instant of the following month")
	flags.Bool("skip-documents", false, "export model files only")
	flags.StringSlice("models", nil, "export only these models and what they depend on")
	flags.String("base-url", constants.DefaultBaseURL, "API root")
	flags.String("auth-scheme", "header", "how the token is sent: header, bearer, query, none")
	flags.Float64("rate-limit", constants.DefaultRateLimit, "maximum requests per second (0 disables limiting)")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "timeout of a single request")
	addCatalogFlag(cmd)

	flags.String("s3-endpoint", "", "S3 compatible endpoint to mirror the export to")
	flags.String("s3-bucket", "", "bucket to mirror the export to")
	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region", "", "S3 region")
	flags.String("s3-prefix", "", "object key prefix (default export folder name)")
	flags.Bool("s3-ssl", true, "use TLS for the S3 endpoint")

	return cmd
}

func (a *App) runExport(cmd *cobra.Command, _ []string) error {
	ctx := logging.WithLogger(cmd.Context(), a.logger)
	now := a.now()

	month, err := resolveMonth(mustGetString(cmd, "month"), mustGetInt(cmd, "year"), now)
	if err != nil {
		return err
	}

	catalog, err := a.catalogFor(mustGetStringSlice(cmd, "models"))
	if err != nil {
		return err
	}

	client, err := a.Transport()
	if err != nil {
		return err
	}

	out, folder, err := a.Sink(ctx, now)
	if err != nil {
		return err
	}

	exp, err := sevexport.New(
		sevexport.WithTransport(client),
		sevexport.WithSink(out),
		sevexport.WithCatalog(catalog),
		sevexport.WithBaseURL(a.config.BaseURL),
		sevexport.WithExclusiveEnd(mustGetBool(cmd, "exclusive-end")),
		sevexport.WithSkipDocuments(mustGetBool(cmd, "skip-documents")),
		sevexport.WithFolder(folder),
	)
	if err != nil {
		return err
	}

	exp.OnModelFetched(func(set *entities.Set) {
		a.logger.Info().Str("model", set.Model()).Int("count", set.Len()).Msg("Model exported")
	})
	exp.OnAttachmentSaved(func(att *attachments.Attachment) {
		a.logger.Debug().Str("file", att.FileName).Int("bytes", len(att.Data)).Msg("Attachment saved")
	})

	a.logger.Info().Str("folder", folder).Str("month", month.String()).Msg("Exporting")

	summary, err := exp.Export(ctx, month)
	if err != nil {
		return err
	}

	return a.print(output.SummaryToTableData(summary), summary)
}

// NewEndpointsCommand creates the endpoints command.
func (a *App) NewEndpointsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List and validate the endpoint catalog",
		Long: `Endpoints validates the endpoint catalog and prints it in execution
order. With --format json the output is a valid ApiExportOptions.json
that can be edited and passed back with --endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.catalogFor(mustGetStringSlice(cmd, "models"))
			if err != nil {
				return err
			}
			return a.print(output.EndpointsToTableData(catalog), catalog)
		},
	}
	cmd.Flags().StringSlice("models", nil, "list only these models and what they depend on")
	addCatalogFlag(cmd)
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("sevexport %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

func addCatalogFlag(cmd *cobra.Command) {
	cmd.Flags().String("endpoints", "", "endpoint catalog file (.json or .yaml), default built-in")
}

// catalogFor loads the configured catalog and narrows it to models.
func (a *App) catalogFor(models []string) (*endpoints.Catalog, error) {
	catalog, err := a.Catalog()
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return catalog, nil
	}
	return catalog.Filter(models...)
}

// print writes table for table output and v for json or yaml.
func (a *App) print(table output.Data, v any) error {
	format := output.DetectFormat(a.config.Format)
	var data any = v
	if format == output.FormatTable {
		data = table
	}
	return output.NewFormatter(format).Format(a.out, data)
}

// resolveMonth picks the month to export. A bare month number uses year,
// or the current year when year is 0.
func resolveMonth(monthArg string, year int, now time.Time) (period.Month, error) {
	monthArg = strings.TrimSpace(monthArg)
	if monthArg == "" {
		if year != 0 {
			return period.Month{}, errors.NewConfigError("month", "--year requires --month", nil)
		}
		return period.PreviousMonth(now), nil
	}

	n, err := strconv.Atoi(monthArg)
	if err != nil {
		if year != 0 {
			return period.Month{}, errors.NewConfigError("month",
				fmt.Sprintf("--year cannot be combined with --month %q", monthArg), nil)
		}
		return period.ParseMonth(monthArg)
	}

	if year == 0 {
		year = now.In(period.CentralEuropeanZone(now)).Year()
	}
	return period.NewMonth(year, n)
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
