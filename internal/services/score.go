package services

import (
	"errors"

	"github.com/casanoova/compass/internal/models"
)

// ErrEmptyInput is returned when scoring is asked to average zero answers.
var ErrEmptyInput = errors.New("scoring requires at least one answer")

// Point is a scored position in the behavioural plane, nominally [-5, 5] on each axis.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScoredAnswer pairs a response with the catalog entry it answers.
type ScoredAnswer struct {
	Pair     *models.AdjectivePair
	Polarity models.Polarity
	Weight   models.Weight
}

// WeightFactor maps a weight to its multiplier: HIGH counts twice as much as LOW.
func WeightFactor(w models.Weight) (float64, bool) {
	switch w {
	case models.WeightHigh:
		return 1.0, true
	case models.WeightLow:
		return 0.5, true
	default:
		return 0, false
	}
}

// ScoreIndividual reduces a respondent's answers to one point: the mean of the
// weighted coordinates of every chosen adjective. The divisor is the number of
// answers, not the catalog size, and the result is not clamped.
func ScoreIndividual(answers []ScoredAnswer) (Point, error) {
	if len(answers) == 0 {
		return Point{}, ErrEmptyInput
	}
	var sumX, sumY float64
	for _, a := range answers {
		if a.Pair == nil {
			return Point{}, NewInvalidError("answer without pair")
		}
		factor, ok := WeightFactor(a.Weight)
		if !ok {
			return Point{}, NewInvalidError("invalid weight " + string(a.Weight))
		}
		switch a.Polarity {
		case models.PolarityPositive:
			sumX += a.Pair.PositiveX * factor
			sumY += a.Pair.PositiveY * factor
		case models.PolarityNegative:
			sumX += a.Pair.NegativeX * factor
			sumY += a.Pair.NegativeY * factor
		default:
			return Point{}, NewInvalidError("invalid polarity " + string(a.Polarity))
		}
	}
	n := float64(len(answers))
	return Point{X: sumX / n, Y: sumY / n}, nil
}

// ScoreTeamAverage is the centroid of the given points. ok is false when there
// is nothing to average, which is a normal state for a team nobody finished.
func ScoreTeamAverage(points []Point) (avg Point, ok bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}, true
}

// joinAnswers attaches catalog pairs to stored answers. Answers for pairs no
// longer in the catalog are skipped.
func joinAnswers(answers []*models.Answer, pairs map[string]*models.AdjectivePair) []ScoredAnswer {
	out := make([]ScoredAnswer, 0, len(answers))
	for _, a := range answers {
		p, ok := pairs[a.PairID]
		if !ok {
			continue
		}
		out = append(out, ScoredAnswer{Pair: p, Polarity: a.Polarity, Weight: a.Weight})
	}
	return out
}

func indexPairs(pairs []*models.AdjectivePair) map[string]*models.AdjectivePair {
	out := make(map[string]*models.AdjectivePair, len(pairs))
	for _, p := range pairs {
		out[p.ID] = p
	}
	return out
}
