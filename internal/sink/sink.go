// Package sink persists the artifacts of an export run: one JSON file per
// model plus the downloaded attachments.
package sink

import (
	"context"
	"encoding/json"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
)

// Sink receives artifacts. name is a JSON artifact name without extension;
// relPath is a slash separated path relative to the export root.
type Sink interface {
	WriteJSON(ctx context.Context, name string, v any) error
	WriteBinary(ctx context.Context, relPath string, data []byte) error
}

// Tee writes every artifact to each sink in order and stops at the first failure.
type Tee []Sink

// WriteJSON implements Sink.
func (t Tee) WriteJSON(ctx context.Context, name string, v any) error {
	for _, s := range t {
		if err := s.WriteJSON(ctx, name, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteBinary implements Sink.
func (t Tee) WriteBinary(ctx context.Context, relPath string, data []byte) error {
	for _, s := range t {
		if err := s.WriteBinary(ctx, relPath, data); err != nil {
			return err
		}
	}
	return nil
}

// marshalJSON renders v indented, the layout of every JSON artifact.
func marshalJSON(name string, v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.WrapParse("json", name, err)
	}
	return append(data, '\n'), nil
}

// jsonName appends the JSON extension and validates the result.
func jsonName(name string) (string, error) {
	return cleanPath(name + constants.JSONExtension)
}

// cleanPath rejects empty, absolute and escaping paths and returns the
// slash separated form.
func cleanPath(relPath string) (string, error) {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if relPath == "" || p == "." || !filepath.IsLocal(filepath.FromSlash(p)) {
		return "", errors.NewValidationError("path", relPath, "must be a relative path inside the export folder")
	}
	return p, nil
}
