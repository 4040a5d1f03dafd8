package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/pkg/models"
	"go.etcd.io/bbolt"
)

var (
	bucketTemplates     = []byte("templates")
	ErrTemplateNotFound = errors.New("template not found")
)

// Manager is the bbolt-backed template catalog, keyed by relative path.
type Manager struct {
	db     *bbolt.DB
	logger *logrus.Logger
}

func NewManager(db *bbolt.DB, logger *logrus.Logger) *Manager {
	db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTemplates)
		return err
	})

	return &Manager{
		db:     db,
		logger: logger,
	}
}

func (m *Manager) Put(rec *models.TemplateRecord) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTemplates)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal template record: %w", err)
		}

		return b.Put([]byte(rec.RelativePath), data)
	})
}

func (m *Manager) Get(relativePath string) (*models.TemplateRecord, error) {
	var rec models.TemplateRecord

	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTemplates)
		data := b.Get([]byte(relativePath))

		if data == nil {
			return ErrTemplateNotFound
		}

		return json.Unmarshal(data, &rec)
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (m *Manager) List() ([]*models.TemplateRecord, error) {
	var recs []*models.TemplateRecord

	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTemplates)

		return b.ForEach(func(k, v []byte) error {
			var rec models.TemplateRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal template %s: %w", k, err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return recs, nil
}

func (m *Manager) ListByCategory(category string) ([]*models.TemplateRecord, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}

	var recs []*models.TemplateRecord
	for _, rec := range all {
		if rec.Category == category {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (m *Manager) Categories() ([]models.CategoryCount, error) {
	counts := make(map[string]int)

	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTemplates)

		return b.ForEach(func(k, v []byte) error {
			var rec models.TemplateRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal template %s: %w", k, err)
			}
			counts[rec.Category]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cats := make([]models.CategoryCount, 0, len(counts))
	for name, count := range counts {
		cats = append(cats, models.CategoryCount{Name: name, Count: count})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	return cats, nil
}

func (m *Manager) Count() (int, error) {
	var n int
	err := m.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketTemplates).Stats().KeyN
		return nil
	})
	return n, err
}

func (m *Manager) Delete(relativePath string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTemplates)

		if b.Get([]byte(relativePath)) == nil {
			return ErrTemplateNotFound
		}

		return b.Delete([]byte(relativePath))
	})
}

// ReplaceAll swaps the entire catalog for the given records in a single
// transaction, so readers never observe a half-written index.
func (m *Manager) ReplaceAll(recs []models.TemplateRecord) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketTemplates); err != nil {
			return fmt.Errorf("failed to drop templates bucket: %w", err)
		}
		b, err := tx.CreateBucket(bucketTemplates)
		if err != nil {
			return fmt.Errorf("failed to recreate templates bucket: %w", err)
		}

		for i := range recs {
			data, err := json.Marshal(&recs[i])
			if err != nil {
				return fmt.Errorf("failed to marshal template record: %w", err)
			}
			if err := b.Put([]byte(recs[i].RelativePath), data); err != nil {
				return err
			}
		}
		return nil
	})
}
