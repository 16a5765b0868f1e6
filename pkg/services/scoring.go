package services

import (
	"math"
	"time"

	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// recencyLambda gives exp(-lambda*30) = 0.5, a 30-day half-life.
const recencyLambda = math.Ln2 / 30.0

// textRankDivisor rescales raw ts_rank_cd values into [0,1]. Raw ranks for
// a decent lexical match land around 0.1; anything at or above that clamps
// to a full text score.
const textRankDivisor = 0.1

// timeScore returns the exponential recency decay for a chunk updated at the
// given time: 1.0 for "just now", 0.5 at 30 days, approaching 0 with age.
func timeScore(updatedAt, now time.Time) float64 {
	ageDays := now.Sub(updatedAt).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-recencyLambda * ageDays)
}

// normalizeTextRank maps a raw ts_rank_cd value into [0,1].
func normalizeTextRank(raw float64) float64 {
	score := raw / textRankDivisor
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// feedbackRatio returns helpful/(helpful+unhelpful), 0 when unjudged.
func feedbackRatio(helpful, unhelpful int) float64 {
	total := helpful + unhelpful
	if total == 0 {
		return 0
	}
	return float64(helpful) / float64(total)
}

// hybridScore combines the four normalized signals. The feedback bonus is
// additive on top of the base-weighted sum, so the result can exceed 1.0;
// that is deliberate ranking-boost behavior, not a probability.
func hybridScore(vectorScore, textScore, timeScore, feedbackScore float64, w models.RankWeights) float64 {
	return vectorScore*w.Vector +
		textScore*w.Text +
		timeScore*w.Recency +
		feedbackScore*w.FeedbackBonus
}

// patternSolutionScore ranks a solution for one pattern: its per-pattern
// success rate dominates, application volume (saturating at 10) adds
// confidence, feedback helpfulness breaks near-ties.
func patternSolutionScore(successRate float64, applications int, avgHelpfulness float64) float64 {
	return 0.6*successRate + 0.3*saturateApplications(applications) + 0.1*avgHelpfulness
}

// goldenPathScore ranks an evidenced pattern→solution pairing.
func goldenPathScore(successRate float64, applications int) float64 {
	return 0.7*successRate + 0.3*saturateApplications(applications)
}

func saturateApplications(applications int) float64 {
	v := float64(applications) / 10.0
	if v > 1.0 {
		return 1.0
	}
	return v
}
