package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"dotaconstants/internal/feed"
	"dotaconstants/internal/storage"
)

// ErrChecksumMismatch is returned when a copied static document differs
// from its source.
var ErrChecksumMismatch = errors.New("checksum mismatch")

const (
	patchFile    = "patch.json"
	patchIndent  = " "
	manifestFile = "manifest.json"
)

// Manifest lists the documents of a finished build.
type Manifest struct {
	RunID       string             `json:"run_id"`
	GeneratedAt string             `json:"generated_at"`
	Documents   []storage.Document `json:"documents"`
}

// finalize copies the static documents into the build and regenerates
// the loader module and manifest.
func (r *Runner) finalize(report *Report) error {
	if r.staticDir != "" {
		if err := renumberPatches(filepath.Join(r.staticDir, patchFile)); err != nil {
			return fmt.Errorf("renumber patches: %w", err)
		}
		statics, err := filepath.Glob(filepath.Join(r.staticDir, "*.json"))
		if err != nil {
			return err
		}
		for _, path := range statics {
			doc, err := r.copyStatic(path)
			if err != nil {
				return fmt.Errorf("copy %s: %w", filepath.Base(path), err)
			}
			report.Documents = append(report.Documents, doc)
		}
		log.Printf("[Pipeline] Copied %d static documents", len(statics))
	}

	if r.indexPath == "" {
		return nil
	}
	if err := writeIndex(r.indexPath, r.writer.Dir()); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	sortDocuments(report.Documents)
	manifest := Manifest{
		RunID:       report.RunID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Documents:   report.Documents,
	}
	manifestPath := filepath.Join(filepath.Dir(r.indexPath), manifestFile)
	if _, err := storage.WriteJSONFile(manifestPath, manifest, storage.DocumentIndent); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// copyStatic copies one static document into the build and checks the
// copy against the source bytes.
func (r *Runner) copyStatic(path string) (storage.Document, error) {
	doc, err := r.writer.Copy(path)
	if err != nil {
		return storage.Document{}, err
	}
	if err := verifyCopy(path, doc); err != nil {
		return storage.Document{}, err
	}
	return doc, nil
}

func verifyCopy(src string, doc storage.Document) error {
	want, err := storage.HashFile(src)
	if err != nil {
		return err
	}
	if want.SHA256 != doc.SHA256 || want.Size != doc.Size {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, doc.Name)
	}
	return nil
}

// renumberPatches sets each entry's id to its position in the list.
// A missing file is not an error.
func renumberPatches(path string) error {
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	v, err := feed.Decode(body, "")
	if err != nil {
		return err
	}
	patches, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%s is not a list", filepath.Base(path))
	}
	for i, p := range patches {
		if entry, ok := p.(*feed.Table); ok {
			entry.Put("id", i)
		}
	}

	_, err = storage.WriteJSONFile(path, patches, patchIndent)
	return err
}

// writeIndex generates a CommonJS module requiring every document in
// buildDir, keyed by its base name.
func writeIndex(indexPath, buildDir string) error {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(filepath.Dir(indexPath), buildDir)
	if err != nil {
		rel = buildDir
	}
	rel = filepath.ToSlash(rel)

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, storage.DocumentName(e.Name()))
	}
	slices.Sort(names)
	names = slices.Compact(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%s: require(__dirname + \"/%s/%s.json\")", name, rel, name)
	}
	code := "module.exports = {\n" + strings.Join(lines, ",\n") + "\n};"
	return os.WriteFile(indexPath, []byte(code), 0644)
}
