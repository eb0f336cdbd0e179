package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

type Repository interface {
	LogRun(ctx context.Context, record RunRecord) error
}

// FileRepository appends one JSON line per run to an audit file. The file
// is created on first write so the tool leaves no trace when auditing is
// disabled.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) LogRun(ctx context.Context, record RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encoding audit record")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening audit log %s", r.path)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "writing audit record")
	}
	return nil
}
