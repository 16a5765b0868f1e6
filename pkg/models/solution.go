package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepKind enumerates the kinds of remediation steps a solution can carry.
type StepKind string

const (
	StepCommand StepKind = "command"
	StepPatch   StepKind = "patch"
	StepCopy    StepKind = "copy"
	StepScript  StepKind = "script"
	StepEnv     StepKind = "env"
)

// IsValid reports whether k is a known step kind.
func (k StepKind) IsValid() bool {
	switch k {
	case StepCommand, StepPatch, StepCopy, StepScript, StepEnv:
		return true
	default:
		return false
	}
}

// Solution is a remediation template: a named fix with matching signatures,
// ordered steps and verification checks. The engine never executes steps —
// it only selects solutions and records outcomes reported by the caller.
//
// Qualifier fields (Component, ProjectScope, PackageManager, BuildTool) are
// permissive: a nil qualifier means "applies regardless", a set qualifier
// must match the query filter exactly.
type Solution struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Component      *string    `json:"component,omitempty"`
	ProjectScope   *string    `json:"project_scope,omitempty"`
	PackageManager *string    `json:"package_manager,omitempty"`
	BuildTool      *string    `json:"build_tool,omitempty"`
	Tags           []string   `json:"tags"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
	LastAppliedAt  *time.Time `json:"last_applied_at,omitempty"`
	VerifiedOn     *time.Time `json:"verified_on,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SuccessRate returns successes over total applications, 0 if never applied.
func (s *Solution) SuccessRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(total)
}

// Signature is an error-matching pattern owned by a solution. A solution may
// own several signatures covering different phrasings of the same failure.
type Signature struct {
	ID          uuid.UUID `json:"id"`
	SolutionID  uuid.UUID `json:"solution_id"`
	Description string    `json:"description"`
	Patterns    []string  `json:"patterns,omitempty"`
	Embedding   []float32 `json:"-"`
}

// Step is one ordered action within a solution. Position is a dense integer,
// unique per solution.
type Step struct {
	ID             uuid.UUID      `json:"id"`
	SolutionID     uuid.UUID      `json:"solution_id"`
	Position       int            `json:"position"`
	Kind           StepKind       `json:"kind"`
	Payload        map[string]any `json:"payload"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// Check is one ordered post-condition verifying a solution worked.
type Check struct {
	ID             uuid.UUID `json:"id"`
	SolutionID     uuid.UUID `json:"solution_id"`
	Position       int       `json:"position"`
	Command        string    `json:"command"`
	ExpectExit     int       `json:"expect_exit"`
	ExpectOutput   string    `json:"expect_output,omitempty"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

// SolutionDetails is a solution with its owned signatures, steps and checks.
type SolutionDetails struct {
	Solution
	Signatures []Signature `json:"signatures"`
	Steps      []Step      `json:"steps"`
	Checks     []Check     `json:"checks"`
}

// ScoredSolution is a matching result: the solution, its match confidence
// (1 − vector distance of the nearest signature) and its success rate.
type ScoredSolution struct {
	Solution
	Confidence  float64 `json:"confidence"`
	SuccessRate float64 `json:"success_rate"`
}

// MatchFilters are the optional scope filters for solution matching. An
// empty field imposes no constraint on that dimension.
type MatchFilters struct {
	Category       string `json:"category,omitempty"`
	Component      string `json:"component,omitempty"`
	ProjectScope   string `json:"project_scope,omitempty"`
	PackageManager string `json:"package_manager,omitempty"`
	BuildTool      string `json:"build_tool,omitempty"`
}

// SolutionInput is the definition accepted by solution upsert. Signatures,
// steps and checks replace any previous definition; success/failure counters
// on an existing solution are preserved.
type SolutionInput struct {
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Component      *string          `json:"component,omitempty"`
	ProjectScope   *string          `json:"project_scope,omitempty"`
	PackageManager *string          `json:"package_manager,omitempty"`
	BuildTool      *string          `json:"build_tool,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	Signatures     []SignatureInput `json:"signatures"`
	Steps          []StepInput      `json:"steps"`
	Checks         []CheckInput     `json:"checks,omitempty"`
}

// SignatureInput defines one signature of a solution being upserted.
type SignatureInput struct {
	Description string   `json:"description"`
	Patterns    []string `json:"patterns,omitempty"`
}

// StepInput defines one ordered step of a solution being upserted.
type StepInput struct {
	Kind           StepKind       `json:"kind"`
	Payload        map[string]any `json:"payload"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
}

// CheckInput defines one ordered check of a solution being upserted.
type CheckInput struct {
	Command        string `json:"command"`
	ExpectExit     int    `json:"expect_exit"`
	ExpectOutput   string `json:"expect_output,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// Validate checks the structural invariants of a solution definition before
// it touches the store.
func (in *SolutionInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("title is required")
	}
	if in.Category == "" {
		return fmt.Errorf("category is required")
	}
	if len(in.Signatures) == 0 {
		return fmt.Errorf("at least one signature is required")
	}
	for i, sig := range in.Signatures {
		if sig.Description == "" {
			return fmt.Errorf("signature %d: description is required", i)
		}
	}
	if len(in.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range in.Steps {
		if !step.Kind.IsValid() {
			return fmt.Errorf("step %d: unknown kind %q", i, step.Kind)
		}
	}
	for i, check := range in.Checks {
		if check.Command == "" {
			return fmt.Errorf("check %d: command is required", i)
		}
	}
	return nil
}
