package models

import (
	"time"

	"github.com/google/uuid"
)

// Pattern is a recurring (category, tag) combination observed across
// multiple projects' chunks. Patterns are derived on the fly from tag
// co-occurrence; they are not a stored entity.
type Pattern struct {
	Tag            string   `json:"tag"`
	Category       string   `json:"category"`
	Occurrences    int      `json:"occurrences"`
	ProjectCount   int      `json:"project_count"`
	AvgHelpfulness float64  `json:"avg_helpfulness"`
	Examples       []string `json:"examples"`
}

// PatternSolution links a derived pattern to a solution with its own
// per-pattern track record, distinct from the solution's global counters —
// one solution may serve multiple patterns with different outcomes.
type PatternSolution struct {
	PatternTag      string    `json:"pattern_tag"`
	PatternCategory string    `json:"pattern_category"`
	SolutionID      uuid.UUID `json:"solution_id"`
	SuccessCount    int       `json:"success_count"`
	FailureCount    int       `json:"failure_count"`
	AvgHelpfulness  float64   `json:"avg_helpfulness"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Applications returns the total recorded applications for this pairing.
func (ps *PatternSolution) Applications() int {
	return ps.SuccessCount + ps.FailureCount
}

// SuccessRate returns per-pattern successes over applications, 0 if none.
func (ps *PatternSolution) SuccessRate() float64 {
	total := ps.Applications()
	if total == 0 {
		return 0
	}
	return float64(ps.SuccessCount) / float64(total)
}

// RankedSolution is a solution ranked for a specific pattern.
type RankedSolution struct {
	Solution
	PatternTag      string  `json:"pattern_tag"`
	PatternCategory string  `json:"pattern_category"`
	SuccessRate     float64 `json:"success_rate"`
	Applications    int     `json:"applications"`
	AvgHelpfulness  float64 `json:"avg_helpfulness"`
	Score           float64 `json:"score"`
}

// GoldenPath is a pattern→solution pairing with a strong, evidenced success
// record, surfaced as a high-confidence recommendation.
type GoldenPath struct {
	PatternTag      string    `json:"pattern_tag"`
	PatternCategory string    `json:"pattern_category"`
	SolutionID      uuid.UUID `json:"solution_id"`
	SolutionTitle   string    `json:"solution_title"`
	SuccessRate     float64   `json:"success_rate"`
	Applications    int       `json:"applications"`
	Score           float64   `json:"score"`
}
