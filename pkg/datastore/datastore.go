package datastore

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/filesystem"
	"github.com/arthur-debert/devplug/pkg/summary"
)

// DataStore stores run summaries.
type DataStore interface {
	SaveRun(s *summary.RunSummary) error
	LastRun() (*summary.RunSummary, error)
}

type fileDataStore struct {
	path string
}

// New creates a DataStore that keeps the last run in a JSON file at path.
func New(path string) DataStore {
	return &fileDataStore{path: path}
}

// SaveRun replaces the stored run. A summary without an id gets one.
func (s *fileDataStore) SaveRun(run *summary.RunSummary) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode run summary")
	}

	return filesystem.WriteFileAtomic(s.path, data, 0o644)
}

// LastRun returns the stored run, or a NOT_FOUND error when no run was
// recorded yet.
func (s *fileDataStore) LastRun() (*summary.RunSummary, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrNotFound, "no run recorded yet")
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", s.path)
	}

	var run summary.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "corrupt run record %s", s.path)
	}
	return &run, nil
}
