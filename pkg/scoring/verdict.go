// Package scoring derives plagiarism verdicts, answer scores, topic labels and feedback from
// similarity values.
package scoring

import (
	"errors"
	"math"

	"github.com/noah-isme/gema-grader/pkg/vectorize"
)

// ErrThresholdOutOfRange is returned for plagiarism thresholds outside [0,100].
var ErrThresholdOutOfRange = errors.New("threshold must be between 0 and 100")

// DefaultThreshold is the plagiarism threshold percentage applied when none is given.
const DefaultThreshold = 75.0

// Verdict is the pass/fail decision for one unordered document pair.
type Verdict struct {
	Doc1        int
	Doc2        int
	Similarity  float64
	Plagiarised bool
}

// ValidateThreshold checks a percentage threshold.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return ErrThresholdOutOfRange
	}
	return nil
}

// Verdicts walks the upper triangle of m. Only flagged pairs are returned unless includeAll is set,
// in which case every pair i<j is returned with its flag. Similarities are rounded to 4 decimals.
func Verdicts(m vectorize.Matrix, threshold float64, includeAll bool) ([]Verdict, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	verdicts := make([]Verdict, 0)
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			sim := m[i][j]
			flagged := sim*100 >= threshold
			if !flagged && !includeAll {
				continue
			}
			verdicts = append(verdicts, Verdict{
				Doc1:        i,
				Doc2:        j,
				Similarity:  Round(sim, 4),
				Plagiarised: flagged,
			})
		}
	}
	return verdicts, nil
}

// Round rounds v to the given number of decimals, half away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
