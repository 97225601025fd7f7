// Package constants provides shared constants used throughout the sevexport codebase.
// This includes API locations, paging, timeouts, file permissions and the
// names of the artifacts an export run produces.
package constants

import "time"

// API constants
const (
	// DefaultBaseURL is the root of the sevDesk REST API
	DefaultBaseURL = "https://my.sevdesk.de/api/v1"

	// DefaultUserAgent identifies the exporter to the API
	DefaultUserAgent = "sevexport (+https://github.com/agentstation/sevexport)"

	// PageSize is the number of records requested per page
	PageSize = 100

	// TokenQueryParam is the query parameter used when the token is sent in the URL
	TokenQueryParam = "token"
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for a single HTTP request
	DefaultHTTPTimeout = 60 * time.Second
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default number of requests per second
	DefaultRateLimit = 5.0

	// DefaultRateBurst is the default token bucket burst size
	DefaultRateBurst = 1
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Export layout constants
const (
	// DocumentsFolder holds the binary attachments of an export
	DocumentsFolder = "Dokumente"

	// OptionsName is the dump of the endpoint catalog used for a run
	OptionsName = "ApiExportOptions"

	// SummaryName is the machine-readable report of a run
	SummaryName = "ExportSummary"

	// JSONExtension is appended to every JSON artifact name
	JSONExtension = ".json"

	// ObjectsKey wraps the records of every model file
	ObjectsKey = "objects"
)

// Format constants
const (
	// TimeFormatFolder names the timestamped export folder
	TimeFormatFolder = "2006-01-02 15-04"

	// TimeFormatFileDate is used for dates inside attachment file names
	TimeFormatFileDate = "20060102"
)
