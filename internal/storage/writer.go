// Package storage writes build documents to disk.
package storage

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DocumentIndent is the indentation of generated documents.
const DocumentIndent = "  "

// Document describes one file written or copied into the build.
type Document struct {
	Name   string `json:"name"`
	Path   string `json:"-"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Writer publishes documents into a build directory. When an archive
// directory is set, the previous version of a document is gzipped there
// before it is replaced.
type Writer struct {
	dir        string
	archiveDir string
}

// NewWriter creates the build directory (and archive directory, if any).
func NewWriter(dir, archiveDir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	if archiveDir != "" {
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	return &Writer{dir: dir, archiveDir: archiveDir}, nil
}

// Dir returns the build directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes v as <dir>/<name>.json.
func (w *Writer) Write(name string, v any) (Document, error) {
	path := filepath.Join(w.dir, name+".json")
	if err := w.archive(path); err != nil {
		return Document{}, err
	}
	return WriteJSONFile(path, v, DocumentIndent)
}

// Copy copies src into the build directory byte for byte.
func (w *Writer) Copy(src string) (Document, error) {
	in, err := os.Open(src)
	if err != nil {
		return Document{}, err
	}
	defer in.Close()

	path := filepath.Join(w.dir, filepath.Base(src))
	if err := w.archive(path); err != nil {
		return Document{}, err
	}
	return writeAtomic(path, func(out io.Writer) error {
		_, err := io.Copy(out, in)
		return err
	})
}

func (w *Writer) archive(path string) error {
	if w.archiveDir == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := CompressToCold(path, w.archiveDir); err != nil {
		return fmt.Errorf("archive %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSONFile atomically encodes v to path with the given indent.
func WriteJSONFile(path string, v any, indent string) (Document, error) {
	return writeAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", indent)
		return enc.Encode(v)
	})
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place, hashing the bytes on the way.
func writeAtomic(path string, fill func(io.Writer) error) (Document, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Document{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	counter := &countingWriter{}
	if err := fill(io.MultiWriter(tmp, hasher, counter)); err != nil {
		tmp.Close()
		return Document{}, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Document{}, err
	}
	if err := tmp.Close(); err != nil {
		return Document{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Document{}, fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return Document{
		Name:   DocumentName(path),
		Path:   path,
		Size:   counter.n,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// HashFile describes an existing file.
func HashFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return Document{}, fmt.Errorf("failed to hash %s: %w", filepath.Base(path), err)
	}
	return Document{
		Name:   DocumentName(path),
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// DocumentName is the file name up to its first dot.
func DocumentName(path string) string {
	name, _, _ := strings.Cut(filepath.Base(path), ".")
	return name
}

// CompressToCold gzips the current contents of path into coldDir as
// <name>_<timestamp>.json.gz. The original is left in place.
func CompressToCold(path, coldDir string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	stamp := time.Now().UTC().Format("2006-01-02_15-04-05.000")
	filename := fmt.Sprintf("%s_%s%s.gz", DocumentName(path), stamp, filepath.Ext(path))
	dst, err := os.Create(filepath.Join(coldDir, filename))
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	gzWriter.Name = filepath.Base(path)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}

	fmt.Printf("[Archive] Compressed %s to %s\n", filepath.Base(path), filename)
	return nil
}
