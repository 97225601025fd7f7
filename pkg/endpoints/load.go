package endpoints

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/sevexport/pkg/errors"
)

// Format is the serialization of a catalog file.
type Format string

// Supported catalog formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in catalog of sevDesk models.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML)
}

// FormatFromPath picks the format by file extension. Anything that is not
// .yaml or .yml is read as JSON, the format of the original options file.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	catalog, err := Parse(data, FormatFromPath(path))
	if err != nil {
		var parseErr *errors.ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, err
	}
	return catalog, nil
}

// Parse decodes a descriptor array in the given format and validates it.
func Parse(data []byte, format Format) (*Catalog, error) {
	var descriptors []Descriptor

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &descriptors); err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &descriptors); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
	default:
		return nil, errors.NewValidationError("format", format, "unsupported catalog format")
	}

	return New(descriptors...)
}
