// Package archive extracts a Sandbox build's downloaded source archive into
// its scratch source directory. It is exercised by exactly one caller,
// Sandbox.Build, so Extract reports per-entry progress directly through the
// callback Sandbox wires to the build's display.Task rather than existing
// as a caller-agnostic utility. It supports the tar family (optionally
// gzip- or zstd-compressed) and zip, with Zip-Slip path containment
// enforced on every entry.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// SupportedExtensions lists every archive suffix Extract recognizes. Sandbox
// uses it to guess a downloaded source's on-disk filename when a recipe's
// source_url doesn't end in a usable name.
func SupportedExtensions() []string {
	return []string{".tar.gz", ".tgz", ".tar.zst", ".tar", ".zip"}
}

// Extract extracts the archive at src into dest, which must already exist.
// onEntry, if non-nil, is called once per archive entry extracted, directory
// entries included — Sandbox advances
// its build's "extract" stage through the same Task it used for the
// download, so the caller sees one continuous progress stream rather than a
// silent gap between fetch and build.
func Extract(src, dest string, onEntry func(name string)) error {
	if strings.HasSuffix(src, ".zip") {
		return extractZip(src, dest, onEntry)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case strings.HasSuffix(src, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(src, ".tar"):
		// plain tar, r is already the file
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	return extractTar(r, dest, onEntry)
}

func extractZip(src, dest string, onEntry func(name string)) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if err := extractEntry(entry.Name, entry.FileInfo(), dest, entry.Open); err != nil {
			return err
		}
		if onEntry != nil {
			onEntry(entry.Name)
		}
	}
	return nil
}

func extractTar(r io.Reader, dest string, onEntry func(name string)) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		open := func() (io.ReadCloser, error) { return io.NopCloser(tr), nil }
		if err := extractEntry(header.Name, header.FileInfo(), dest, open); err != nil {
			return err
		}
		if onEntry != nil {
			onEntry(header.Name)
		}
	}
}

// extractEntry writes one archive entry to disk under dest, rejecting any
// entry whose resolved path would escape dest.
func extractEntry(name string, info os.FileInfo, dest string, open func() (io.ReadCloser, error)) error {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path in archive: %s", name)
	}

	if info.IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	defer f.Close()

	rc, err := open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return nil
}
