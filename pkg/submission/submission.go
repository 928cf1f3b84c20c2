// Package submission defines the on-disk packaging format for a
// competitor's strategy and the lifecycle it moves through on its way to
// being scored.
package submission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status is a submission's position in its validate/compile/deploy/score
// lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusCompiled  Status = "compiled"
	StatusDeployed  Status = "deployed"
	StatusScored    Status = "scored"
	StatusRejected  Status = "rejected"
)

// Manifest is the metadata companion stored alongside a submission's
// source file.
type Manifest struct {
	Author       string    `json:"author"`
	SubmittedAt  time.Time `json:"submitted_at"`
	StrategyName string    `json:"strategy_name,omitempty"`
}

// Submission is one competitor's packaged entry: a UUID, the raw source
// text, its manifest, and its current lifecycle status.
type Submission struct {
	ID       uuid.UUID
	Source   string
	Manifest Manifest
	Status   Status
	Errors   []string
}

// Load reads a submission directory containing strategy.sol and
// manifest.json, assigning it a fresh ID.
func Load(dir string) (*Submission, error) {
	source, err := os.ReadFile(filepath.Join(dir, "strategy.sol"))
	if err != nil {
		return nil, fmt.Errorf("submission: read source: %w", err)
	}
	manifestRaw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("submission: read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nil, fmt.Errorf("submission: parse manifest: %w", err)
	}

	return &Submission{
		ID:       uuid.New(),
		Source:   string(source),
		Manifest: manifest,
		Status:   StatusPending,
	}, nil
}

// Reject marks the submission rejected and records why, collecting all
// diagnostics rather than only the first.
func (s *Submission) Reject(errs []string) {
	s.Status = StatusRejected
	s.Errors = append(s.Errors, errs...)
}

// Advance moves the submission to the next lifecycle status.
func (s *Submission) Advance(status Status) {
	s.Status = status
}
