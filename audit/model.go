package audit

import (
	"time"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// RunRecord is one audit entry per comparison run.
type RunRecord struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
	SourceDir    string        `json:"source_dir"`
	ReferenceDir string        `json:"reference_dir"`
	Strategy     string        `json:"strategy"`
	Summary      model.Summary `json:"summary"`
	Diagnostics  int           `json:"diagnostics"`
}
