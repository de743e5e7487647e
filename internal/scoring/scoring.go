// Package scoring computes the Jaccard similarity between a submitted cell
// selection and a captcha's answer set, and the pass decision against a
// percentage threshold.
package scoring

import "errors"

// ErrEmptySelection is returned when there is nothing to score.
var ErrEmptySelection = errors.New("selection is empty")

// Result is the outcome of scoring one selection.
type Result struct {
	// Pass is true when the similarity meets the required percentage.
	Pass bool
	// Intersection and Union are the set sizes |S∩C| and |S∪C|.
	Intersection int
	Union        int
	// Percent is the similarity rounded half-up to a whole percentage.
	Percent int
	// Required is the threshold the selection was scored against.
	Required int
}

// Accuracy is the similarity as a fraction in [0,1].
func (r Result) Accuracy() float64 {
	if r.Union == 0 {
		return 0
	}
	return float64(r.Intersection) / float64(r.Union)
}

// Score compares selected against correct. Both are treated as sets, so
// order and duplicates do not affect the result. An empty selection is
// rejected before any arithmetic.
func Score(selected, correct []int, required int) (Result, error) {
	s := toSet(selected)
	if len(s) == 0 {
		return Result{}, ErrEmptySelection
	}
	c := toSet(correct)

	inter := 0
	for i := range s {
		if _, ok := c[i]; ok {
			inter++
		}
	}
	union := len(s) + len(c) - inter

	return Result{
		// inter/union >= required/100, kept in integers
		Pass:         inter*100 >= required*union,
		Intersection: inter,
		Union:        union,
		Percent:      (200*inter + union) / (2 * union),
		Required:     required,
	}, nil
}

func toSet(idx []int) map[int]struct{} {
	m := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		m[i] = struct{}{}
	}
	return m
}
