package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/pkg/models"
)

var excludedDirs = map[string]struct{}{
	".git":         {},
	".github":      {},
	".venv":        {},
	"__pycache__":  {},
	"node_modules": {},
	"tools":        {},
	"dist":         {},
	"preview":      {},
}

// Generated inventory files living inside the tree are not templates.
var excludedFiles = map[string]struct{}{
	"all_templates.json":    {},
	"ALL_unique_nodes.json": {},
}

// Scanner walks a content tree and turns every workflow JSON file into a
// catalog record.
type Scanner struct {
	root   string
	logger *logrus.Logger
}

func NewScanner(root string, logger *logrus.Logger) *Scanner {
	return &Scanner{root: root, logger: logger}
}

// Scan returns a record for every workflow file under the root, in walk
// order. Unreadable files are skipped with a warning rather than failing
// the whole scan.
func (s *Scanner) Scan() ([]models.TemplateRecord, error) {
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content root: %w", err)
	}

	var records []models.TemplateRecord
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			name := d.Name()
			if _, skip := excludedDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		if _, skip := excludedFiles[d.Name()]; skip {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable file")
			return nil
		}
		records = append(records, buildRecord(absRoot, path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content root: %w", err)
	}

	return records, nil
}

func buildRecord(root, path string, info fs.FileInfo) models.TemplateRecord {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	category := ""
	if parts := strings.Split(rel, string(os.PathSeparator)); len(parts) > 1 {
		category = parts[0]
	}

	title, nodesCount := titleAndNodes(path)

	return models.TemplateRecord{
		AbsolutePath:  path,
		RelativePath:  filepath.ToSlash(rel),
		Title:         title,
		Category:      category,
		NodesCount:    nodesCount,
		FileSizeBytes: info.Size(),
		ModifiedISO:   info.ModTime().Format("2006-01-02T15:04:05"),
	}
}

// titleAndNodes extracts the workflow name and node count from the file
// content, falling back to the file stem when the JSON is unusable.
func titleAndNodes(path string) (string, *int) {
	title := strings.TrimSuffix(filepath.Base(path), ".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return title, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return title, nil
	}

	if name, ok := doc["name"].(string); ok && strings.TrimSpace(name) != "" {
		title = strings.TrimSpace(name)
	}

	var nodesCount *int
	if nodes, ok := doc["nodes"].([]interface{}); ok {
		n := len(nodes)
		nodesCount = &n
	}
	return title, nodesCount
}
