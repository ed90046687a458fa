// pkg/rpmfile/rpmfile.go
package rpmfile

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
	rpmutils "github.com/sassoftware/go-rpmutils"
	"github.com/ulikunitz/xz"
)

// MimeType is the type of files this package reads
const MimeType = "application/x-rpm"

var ErrUnknownCompression = errors.New("rpmfile: unknown payload compression")

const (
	modeType    = 0o170000
	modeDir     = 0o040000
	modeRegular = 0o100000
	modeSymlink = 0o120000
)

// Package is the header metadata of an .rpm
type Package struct {
	Name        string
	Epoch       string
	Version     string
	Release     string
	Arch        string
	Summary     string
	Description string
	License     string
	URL         string
	Group       string
	Size        int64
	Requires    []string
	Provides    []string
	Files       []string
}

// EVR is the [epoch:]version-release string
func (p *Package) EVR() string {
	evr := p.Version
	if p.Release != "" {
		evr += "-" + p.Release
	}
	if p.Epoch != "" && p.Epoch != "0" {
		evr = p.Epoch + ":" + evr
	}
	return evr
}

// Read opens an .rpm and reads its header
func Read(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rpm file: %w", err)
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("reading rpm package: %w", err)
	}
	hdr := rpm.Header

	nevra, err := hdr.GetNEVRA()
	if err != nil {
		return nil, fmt.Errorf("reading rpm nevra: %w", err)
	}

	pkg := &Package{
		Name:        nevra.Name,
		Epoch:       nevra.Epoch,
		Version:     nevra.Version,
		Release:     nevra.Release,
		Arch:        nevra.Arch,
		Summary:     tagString(hdr, rpmutils.SUMMARY),
		Description: tagString(hdr, rpmutils.DESCRIPTION),
		License:     tagString(hdr, rpmutils.LICENSE),
		URL:         tagString(hdr, rpmutils.URL),
		Group:       tagString(hdr, rpmutils.GROUP),
		Requires:    capabilities(hdr, rpmutils.REQUIRENAME),
		Provides:    capabilities(hdr, rpmutils.PROVIDENAME),
	}
	if size, err := hdr.InstalledSize(); err == nil {
		pkg.Size = size
	}

	files, err := hdr.GetFiles()
	if err != nil {
		return nil, fmt.Errorf("reading rpm file list: %w", err)
	}
	for _, fi := range files {
		if fi.Mode()&modeType == modeDir {
			continue
		}
		pkg.Files = append(pkg.Files, fi.Name())
	}
	return pkg, nil
}

func tagString(hdr *rpmutils.RpmHeader, tag int) string {
	s, err := hdr.GetString(tag)
	if err != nil {
		return ""
	}
	return s
}

// capabilities drops rpmlib() markers and duplicates
func capabilities(hdr *rpmutils.RpmHeader, tag int) []string {
	names, err := hdr.GetStrings(tag)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, "rpmlib(") || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Extract unpacks the payload of an .rpm below root
func Extract(path, root string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rpm file: %w", err)
	}
	defer f.Close()

	// leaves f at the start of the payload
	if _, err := rpmutils.ReadRpm(f); err != nil {
		return nil, fmt.Errorf("reading rpm package: %w", err)
	}
	return ExtractPayload(f, root)
}

// ExtractPayload unpacks a compressed cpio payload below root and returns
// the installed paths
func ExtractPayload(r io.Reader, root string) ([]string, error) {
	var written []string
	err := walkPayload(r, func(h *cpio.Header, body io.Reader) error {
		clean := cleanPath(h.Name)
		if clean == "" {
			return nil
		}
		target := filepath.Join(root, clean)
		if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
			return fmt.Errorf("rpmfile: entry %s escapes %s", h.Name, root)
		}

		switch h.Mode & modeType {
		case modeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}

		case modeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory for symlink: %w", err)
			}
			os.Remove(target)
			if err := os.Symlink(h.Linkname, target); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", target, h.Linkname, err)
			}
			written = append(written, "/"+clean)

		case modeRegular:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(h.Mode&0777))
			if err != nil {
				return fmt.Errorf("creating file %s: %w", target, err)
			}
			_, err = io.Copy(out, body)
			out.Close()
			if err != nil {
				return fmt.Errorf("writing file %s: %w", target, err)
			}
			written = append(written, "/"+clean)
		}
		return nil
	})
	return written, err
}

// walkPayload detects the payload compression by its magic bytes and calls
// fn for every cpio entry
func walkPayload(r io.Reader, fn func(h *cpio.Header, body io.Reader) error) error {
	br := bufio.NewReader(r)
	magic, err := br.Peek(6)
	if err != nil {
		return fmt.Errorf("reading payload magic: %w", err)
	}

	var payload io.Reader
	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		payload = gz
	case bytes.HasPrefix(magic, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		zs, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zs.Close()
		payload = zs
	case bytes.Equal(magic, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		x, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		payload = x
	default:
		return ErrUnknownCompression
	}

	cpioReader := cpio.NewReader(payload)
	for {
		header, err := cpioReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading cpio: %w", err)
		}
		if err := fn(header, cpioReader); err != nil {
			return err
		}
	}
}

// cleanPath strips the leading "./" or "/" of a payload path
func cleanPath(name string) string {
	p := strings.TrimPrefix(name, "./")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "." {
		return ""
	}
	return p
}
