package services

import (
	"math"
	"testing"
	"time"

	"github.com/memloop-ai/memloop-engine/pkg/models"
)

func TestTimeScore_HalfLife(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"just now", 0, 1.0},
		{"30 days", 30 * 24 * time.Hour, 0.5},
		{"60 days", 60 * 24 * time.Hour, 0.25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := timeScore(now.Add(-tc.age), now)
			if math.Abs(got-tc.want) > 0.001 {
				t.Errorf("timeScore at age %v = %f, want %f", tc.age, got, tc.want)
			}
		})
	}
}

func TestTimeScore_FutureTimestampClamped(t *testing.T) {
	now := time.Now()
	if got := timeScore(now.Add(time.Hour), now); got != 1.0 {
		t.Errorf("timeScore for future timestamp = %f, want 1.0", got)
	}
}

func TestNormalizeTextRank(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{0, 0},
		{0.05, 0.5},
		{0.1, 1.0},
		{0.5, 1.0}, // clamped
		{-0.1, 0},  // never negative
	}
	for _, tc := range cases {
		if got := normalizeTextRank(tc.raw); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("normalizeTextRank(%f) = %f, want %f", tc.raw, got, tc.want)
		}
	}
}

func TestFeedbackRatio(t *testing.T) {
	if got := feedbackRatio(0, 0); got != 0 {
		t.Errorf("unjudged chunk ratio = %f, want 0", got)
	}
	if got := feedbackRatio(3, 1); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("feedbackRatio(3,1) = %f, want 0.75", got)
	}
}

func TestHybridScore_Monotonicity(t *testing.T) {
	w := models.DefaultRankWeights()
	base := hybridScore(0.5, 0.5, 0.5, 0.5, w)

	// Increasing any single signal must not decrease the combined score.
	signals := []struct {
		name   string
		scores [4]float64
	}{
		{"vector", [4]float64{0.9, 0.5, 0.5, 0.5}},
		{"text", [4]float64{0.5, 0.9, 0.5, 0.5}},
		{"recency", [4]float64{0.5, 0.5, 0.9, 0.5}},
		{"feedback", [4]float64{0.5, 0.5, 0.5, 0.9}},
	}
	for _, s := range signals {
		got := hybridScore(s.scores[0], s.scores[1], s.scores[2], s.scores[3], w)
		if got < base {
			t.Errorf("raising %s signal decreased score: %f < %f", s.name, got, base)
		}
	}
}

func TestHybridScore_FeedbackBonusExceedsOne(t *testing.T) {
	// The feedback bonus is additive on top of the base-weighted sum, so a
	// perfect chunk with perfect feedback scores above 1.0.
	w := models.DefaultRankWeights()
	got := hybridScore(1, 1, 1, 1, w)
	want := 1.15
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("perfect-signal score = %f, want %f", got, want)
	}
}

func TestPatternSolutionScore(t *testing.T) {
	// 4 successes, 1 failure, no feedback: 0.6*0.8 + 0.3*(5/10) + 0.1*0 = 0.63
	got := patternSolutionScore(0.8, 5, 0)
	if math.Abs(got-0.63) > 1e-9 {
		t.Errorf("patternSolutionScore(0.8, 5, 0) = %f, want 0.63", got)
	}

	// Application volume saturates at 10.
	saturated := patternSolutionScore(1.0, 10, 0)
	beyond := patternSolutionScore(1.0, 100, 0)
	if saturated != beyond {
		t.Errorf("application volume should saturate: %f != %f", saturated, beyond)
	}
}

func TestGoldenPathScore(t *testing.T) {
	got := goldenPathScore(1.0, 10)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("goldenPathScore(1.0, 10) = %f, want 1.0", got)
	}
	if goldenPathScore(0.9, 4) <= goldenPathScore(0.5, 4) {
		t.Error("higher success rate must score higher at equal volume")
	}
}
