package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepKind_IsValid(t *testing.T) {
	for _, kind := range []StepKind{StepCommand, StepPatch, StepCopy, StepScript, StepEnv} {
		assert.True(t, kind.IsValid(), "%s should be valid", kind)
	}
	assert.False(t, StepKind("").IsValid())
	assert.False(t, StepKind("exec").IsValid())
}

func TestSolution_SuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		success  int
		failure  int
		expected float64
	}{
		{"never applied", 0, 0, 0},
		{"all successes", 4, 0, 1.0},
		{"mixed", 4, 1, 0.8},
		{"all failures", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Solution{SuccessCount: tt.success, FailureCount: tt.failure}
			assert.InDelta(t, tt.expected, s.SuccessRate(), 0.0001)
		})
	}
}

func validSolutionInput() *SolutionInput {
	return &SolutionInput{
		Title:       "Regenerate pnpm lockfile",
		Description: "Reinstall without the frozen lockfile to resync it.",
		Category:    "workspace",
		Signatures:  []SignatureInput{{Description: "lockfile is out of date"}},
		Steps: []StepInput{
			{Kind: StepCommand, Payload: map[string]any{"command": "pnpm install --no-frozen-lockfile"}},
		},
		Checks: []CheckInput{
			{Command: "pnpm install --frozen-lockfile", ExpectExit: 0},
		},
	}
}

func TestSolutionInput_Validate(t *testing.T) {
	assert.NoError(t, validSolutionInput().Validate())

	tests := []struct {
		name   string
		mutate func(*SolutionInput)
	}{
		{"missing title", func(in *SolutionInput) { in.Title = "" }},
		{"missing category", func(in *SolutionInput) { in.Category = "" }},
		{"no signatures", func(in *SolutionInput) { in.Signatures = nil }},
		{"signature without description", func(in *SolutionInput) {
			in.Signatures = []SignatureInput{{Patterns: []string{"ERR_PNPM"}}}
		}},
		{"no steps", func(in *SolutionInput) { in.Steps = nil }},
		{"unknown step kind", func(in *SolutionInput) {
			in.Steps = []StepInput{{Kind: StepKind("exec")}}
		}},
		{"check without command", func(in *SolutionInput) {
			in.Checks = []CheckInput{{ExpectExit: 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSolutionInput()
			tt.mutate(in)
			assert.Error(t, in.Validate())
		})
	}
}

func TestSolutionInput_ChecksAreOptional(t *testing.T) {
	in := validSolutionInput()
	in.Checks = nil
	assert.NoError(t, in.Validate())
}
