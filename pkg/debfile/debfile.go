// pkg/debfile/debfile.go
package debfile

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var (
	ErrNoControl = errors.New("debfile: no control.tar.* member")
	ErrNoData    = errors.New("debfile: no data.tar.* member")
)

// MimeType is the type of files this package reads
const MimeType = "application/vnd.debian.binary-package"

// Deb is the metadata and file list of a .deb archive
type Deb struct {
	Control Control
	Files   []string
}

// Read opens a .deb and reads its control stanza and the paths it installs
func Read(path string) (*Deb, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening .deb file: %w", err)
	}
	defer f.Close()

	deb := &Deb{}
	var haveControl, haveData bool

	arReader := ar.NewReader(f)
	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar entry: %w", err)
		}

		name := strings.TrimSuffix(header.Name, "/")
		switch {
		case strings.HasPrefix(name, "control.tar"):
			ctrl, err := readControl(arReader, name)
			if err != nil {
				return nil, err
			}
			deb.Control = ctrl
			haveControl = true
		case strings.HasPrefix(name, "data.tar"):
			err := walkTar(arReader, name, func(h *tar.Header, _ io.Reader) error {
				if h.Typeflag == tar.TypeDir {
					return nil
				}
				if p := cleanPath(h.Name); p != "" {
					deb.Files = append(deb.Files, "/"+p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			haveData = true
		}
	}

	if !haveControl {
		return nil, ErrNoControl
	}
	if !haveData {
		return nil, ErrNoData
	}
	return deb, nil
}

func readControl(r io.Reader, name string) (Control, error) {
	var ctrl Control
	found := false
	err := walkTar(r, name, func(h *tar.Header, body io.Reader) error {
		if cleanPath(h.Name) != "control" {
			return nil
		}
		stanzas, err := ParseControl(body)
		if err != nil {
			return err
		}
		if len(stanzas) == 0 {
			return fmt.Errorf("debfile: empty control file")
		}
		ctrl = stanzas[0]
		found = true
		return nil
	})
	if err != nil {
		return Control{}, err
	}
	if !found {
		return Control{}, fmt.Errorf("debfile: %s has no control file", name)
	}
	return ctrl, nil
}

// Extract unpacks the data archive of a .deb below root
func Extract(path, root string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening .deb file: %w", err)
	}
	defer f.Close()

	arReader := ar.NewReader(f)
	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar entry: %w", err)
		}
		name := strings.TrimSuffix(header.Name, "/")
		if strings.HasPrefix(name, "data.tar") {
			return extractData(arReader, name, root)
		}
	}
	return nil, ErrNoData
}

func extractData(r io.Reader, name, root string) ([]string, error) {
	var written []string
	err := walkTar(r, name, func(h *tar.Header, body io.Reader) error {
		clean := cleanPath(h.Name)
		if clean == "" {
			return nil
		}
		target := filepath.Join(root, clean)
		if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
			return fmt.Errorf("debfile: entry %s escapes %s", h.Name, root)
		}

		switch h.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory for symlink: %w", err)
			}
			os.Remove(target)
			if err := os.Symlink(h.Linkname, target); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", target, h.Linkname, err)
			}
			written = append(written, "/"+clean)

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(h.Mode))
			if err != nil {
				return fmt.Errorf("creating file %s: %w", target, err)
			}
			n, err := io.Copy(out, body)
			out.Close()
			if err != nil {
				return fmt.Errorf("writing file %s: %w", target, err)
			}
			if n != h.Size {
				return fmt.Errorf("file size mismatch for %s: expected %d, got %d", target, h.Size, n)
			}
			written = append(written, "/"+clean)
		}
		return nil
	})
	return written, err
}

// walkTar decompresses a tar member by its suffix and calls fn per entry
func walkTar(r io.Reader, name string, fn func(h *tar.Header, body io.Reader) error) error {
	var tarReader *tar.Reader

	switch {
	case strings.HasSuffix(name, ".gz"):
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		tarReader = tar.NewReader(gzReader)
	case strings.HasSuffix(name, ".xz"):
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		tarReader = tar.NewReader(xzReader)
	case strings.HasSuffix(name, ".zst"):
		zstdReader, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zstdReader.Close()
		tarReader = tar.NewReader(zstdReader)
	default:
		tarReader = tar.NewReader(r)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		if err := fn(header, tarReader); err != nil {
			return err
		}
	}
}

// cleanPath strips the leading "./" or "/" of an archive path
func cleanPath(name string) string {
	p := strings.TrimPrefix(name, "./")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "." {
		return ""
	}
	return p
}
