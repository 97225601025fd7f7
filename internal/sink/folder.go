package sink

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// FolderSink writes artifacts below <base>/<yyyy-MM-dd HH-mm>.
type FolderSink struct {
	root string
}

// NewFolderSink creates the timestamped export folder and its documents folder.
func NewFolderSink(base string, now time.Time) (*FolderSink, error) {
	if base == "" {
		base = "."
	}
	root := filepath.Join(base, now.Format(constants.TimeFormatFolder))
	if err := os.MkdirAll(filepath.Join(root, constants.DocumentsFolder), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", root, err)
	}
	return &FolderSink{root: root}, nil
}

// Root returns the export folder.
func (s *FolderSink) Root() string {
	return s.root
}

// WriteJSON implements Sink.
func (s *FolderSink) WriteJSON(ctx context.Context, name string, v any) error {
	rel, err := jsonName(name)
	if err != nil {
		return err
	}
	data, err := marshalJSON(rel, v)
	if err != nil {
		return err
	}
	return s.write(ctx, rel, data)
}

// WriteBinary implements Sink. An existing file of the same name is replaced.
func (s *FolderSink) WriteBinary(ctx context.Context, relPath string, data []byte) error {
	rel, err := cleanPath(relPath)
	if err != nil {
		return err
	}
	return s.write(ctx, rel, data)
}

func (s *FolderSink) write(ctx context.Context, rel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", target, err)
	}

	logging.Ctx(ctx).Debug().Str("path", target).Int("bytes", len(data)).Msg("File written")
	return nil
}
