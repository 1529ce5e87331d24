package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docchat/internal/core/domain"
)

// Source resolves local paths into candidate upload files. Relative paths are
// resolved against basePath.
type Source struct {
	basePath string
}

func New(basePath string) (*Source, error) {
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working dir: %w", err)
		}
		basePath = wd
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat base dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", basePath)
	}
	return &Source{basePath: basePath}, nil
}

func (s *Source) Stat(_ context.Context, path string) (domain.UploadFile, error) {
	path = s.resolve(path)
	info, err := os.Stat(path)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return domain.UploadFile{}, fmt.Errorf("%s is a directory", path)
	}

	return domain.UploadFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open file: %w", err)
			}
			return f, nil
		},
	}, nil
}

func (s *Source) resolve(path string) string {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.basePath, path)
	}
	return filepath.Clean(path)
}
