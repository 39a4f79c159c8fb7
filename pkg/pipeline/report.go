package pipeline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// State is a stage of a run.
type State string

const (
	StateInitialized           State = "initialized"
	StateResolving             State = "resolving"
	StateExtracting            State = "extracting"
	StateWriting               State = "writing"
	StateCompleted             State = "completed"
	StateCompletedWithFailures State = "completed_with_failures"
	StateFailed                State = "failed"
	StateCancelled             State = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCompletedWithFailures, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Failure is one recorded, non-fatal error.
type Failure struct {
	Phase      string `yaml:"phase,omitempty"` // empty for resolution failures
	Target     string `yaml:"target"`          // name@version of the crate being processed
	Dependency string `yaml:"dependency,omitempty"`
	Code       string `yaml:"code"`
	Message    string `yaml:"message"`
}

func newFailure(phase, target, dependency string, err error) Failure {
	return Failure{
		Phase:      phase,
		Target:     target,
		Dependency: dependency,
		Code:       string(errs.GetCode(err)),
		Message:    err.Error(),
	}
}

// PhaseReport is the outcome of one phase.
type PhaseReport struct {
	Phase     string    `yaml:"phase"`
	File      string    `yaml:"file"`
	Rows      int64     `yaml:"rows"`
	Succeeded int       `yaml:"succeeded"`
	Failures  []Failure `yaml:"failures,omitempty"`
}

// Report accumulates the outcome of a run. The runner owns it while the run
// is in progress; callers read it after Execute returns.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Project   string        `yaml:"project"`
	OutputDir string        `yaml:"output_dir"`
	State     State         `yaml:"state"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`

	Targets            []string      `yaml:"targets"`
	Truncated          bool          `yaml:"truncated,omitempty"`
	ResolutionFailures []Failure     `yaml:"resolution_failures,omitempty"`
	Phases             []PhaseReport `yaml:"phases"`

	// Graph is the resolved dependency graph, nil when dependencies were
	// not included.
	Graph graph.Graph[string, string] `yaml:"-"`

	mu    sync.Mutex
	index map[schema.Phase]int
}

func newReport(runID string, phases []schema.Phase) *Report {
	r := &Report{
		RunID:     runID,
		State:     StateInitialized,
		StartedAt: time.Now().UTC(),
		index:     make(map[schema.Phase]int, len(phases)),
	}
	for i, p := range phases {
		r.Phases = append(r.Phases, PhaseReport{Phase: p.String(), File: schema.Lookup(p).File})
		r.index[p] = i
	}
	return r
}

func (r *Report) succeed(p schema.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Phases[r.index[p]].Succeeded++
}

func (r *Report) fail(p schema.Phase, target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr := &r.Phases[r.index[p]]
	pr.Failures = append(pr.Failures, newFailure(p.String(), target, "", err))
}

// Succeeded returns the number of (phase, target) extractions that
// produced rows.
func (r *Report) Succeeded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.Phases {
		n += p.Succeeded
	}
	return n
}

// Failures returns every recorded failure: resolution failures first, then
// extraction failures in phase order.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Failure(nil), r.ResolutionFailures...)
	for _, p := range r.Phases {
		out = append(out, p.Failures...)
	}
	return out
}

// TotalRows sums the rows written across phases.
func (r *Report) TotalRows() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.Phases {
		n += p.Rows
	}
	return n
}

// Encode writes the report as YAML.
func (r *Report) Encode(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the report as YAML to path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
