// pkg/index/sync.go
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

const (
	DefaultBranch = "main"

	// CatalogDir is where catalog files live inside the repository
	CatalogDir = "catalog"
)

// Source is a git repository publishing catalog files
type Source struct {
	URL    string
	Branch string
}

// Sync clones the source and copies its catalog files into destDir,
// replacing what was there. Only *.toml and *.toml.xz files are copied.
func Sync(ctx context.Context, src Source, destDir string, logger zerolog.Logger) (int, error) {
	if src.URL == "" {
		return 0, errors.New("index: source url is required")
	}
	branch := src.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	tempDir, err := os.MkdirTemp("", "upkgd-catalog-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger.Info().Str("url", src.URL).Str("branch", branch).Msg("updating catalog")

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           src.URL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return 0, fmt.Errorf("git clone failed: %w", err)
	}

	n, err := copyCatalog(filepath.Join(tempDir, CatalogDir), destDir)
	if err != nil {
		return 0, err
	}

	logger.Info().Int("files", n).Msg("catalog updated")
	return n, nil
}

// copyCatalog copies catalog files from src into a fresh dst
func copyCatalog(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("reading catalog dir: %w", err)
	}

	if err := os.RemoveAll(dst); err != nil {
		return 0, fmt.Errorf("clearing %s: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}

	n := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".toml") || strings.HasSuffix(name, ".toml.xz")) {
			continue
		}
		if err := copyFile(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return n, fmt.Errorf("copying %s: %w", name, err)
		}
		n++
	}
	return n, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
