package site

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/internal/catalog"
	"github.com/vitrine/vitrine/pkg/models"
)

const (
	IndexJSONName = "all_templates.json"
	IndexCSVName  = "all_templates.csv"
)

// Builder assembles a deployable site directory from a template source tree:
// inventory indexes, the preview page, and a copy of every category
// directory.
type Builder struct {
	root   string
	out    string
	logger *logrus.Logger
}

func NewBuilder(root, out string, logger *logrus.Logger) *Builder {
	return &Builder{root: root, out: out, logger: logger}
}

// Build writes the site into the output directory and returns the number of
// templates indexed. An existing output directory is replaced.
func (b *Builder) Build() (int, error) {
	absOut, err := filepath.Abs(b.out)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	if err := os.RemoveAll(absOut); err != nil {
		return 0, fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(absOut, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	records, err := catalog.NewScanner(b.root, b.logger).Scan()
	if err != nil {
		return 0, err
	}

	if err := WriteJSONIndex(records, filepath.Join(absOut, IndexJSONName)); err != nil {
		return 0, err
	}
	if err := WriteCSVIndex(records, filepath.Join(absOut, IndexCSVName)); err != nil {
		return 0, err
	}

	if err := b.copyPreview(absOut); err != nil {
		return 0, err
	}
	if err := b.copyCategoryTrees(records, absOut); err != nil {
		return 0, err
	}

	b.logger.WithFields(logrus.Fields{
		"templates": len(records),
		"out":       absOut,
	}).Info("Site build complete")

	return len(records), nil
}

func (b *Builder) copyPreview(out string) error {
	src := filepath.Join(b.root, "preview", "index.html")
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat preview page: %w", err)
	}

	dstDir := filepath.Join(out, "preview")
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}
	return copyFile(src, filepath.Join(dstDir, "index.html"))
}

func (b *Builder) copyCategoryTrees(records []models.TemplateRecord, out string) error {
	outName := filepath.Base(out)

	dirs := make(map[string]struct{})
	for _, rec := range records {
		first, _, found := strings.Cut(rec.RelativePath, "/")
		if found && first != outName {
			dirs[first] = struct{}{}
		}
	}

	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(b.root, name)
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			continue
		}
		if err := copyTree(src, filepath.Join(out, name)); err != nil {
			return fmt.Errorf("failed to copy category %s: %w", name, err)
		}
	}
	return nil
}

// WriteJSONIndex writes the template inventory as pretty-printed JSON.
func WriteJSONIndex(records []models.TemplateRecord, path string) error {
	if records == nil {
		records = []models.TemplateRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write JSON index: %w", err)
	}
	return nil
}

// WriteCSVIndex writes the template inventory as CSV with a fixed header.
func WriteCSVIndex(records []models.TemplateRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV index: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"absolute_path",
		"relative_path",
		"title",
		"category",
		"nodes_count",
		"file_size_bytes",
		"modified_iso",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		nodes := ""
		if rec.NodesCount != nil {
			nodes = strconv.Itoa(*rec.NodesCount)
		}
		row := []string{
			rec.AbsolutePath,
			rec.RelativePath,
			rec.Title,
			rec.Category,
			nodes,
			strconv.FormatInt(rec.FileSizeBytes, 10),
			rec.ModifiedISO,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
