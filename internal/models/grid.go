package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// GridTypes lists the grid shapes accepted for a captcha.
var GridTypes = []string{"3x3", "3x4", "4x3", "4x4", "5x5"}

// Grid is a parsed "RxC" grid shape.
type Grid struct {
	Rows int
	Cols int
}

// ParseGrid parses s as "RxC" and rejects shapes outside GridTypes.
func ParseGrid(s string) (Grid, error) {
	if !slices.Contains(GridTypes, s) {
		return Grid{}, fmt.Errorf("%w: unsupported gridType %q", ErrInvalidInput, s)
	}
	r, c, _ := strings.Cut(s, "x")
	rows, err := strconv.Atoi(r)
	if err != nil {
		return Grid{}, fmt.Errorf("%w: gridType rows: %v", ErrInvalidInput, err)
	}
	cols, err := strconv.Atoi(c)
	if err != nil {
		return Grid{}, fmt.Errorf("%w: gridType cols: %v", ErrInvalidInput, err)
	}
	if rows < 1 || cols < 1 {
		return Grid{}, fmt.Errorf("%w: gridType %q has no cells", ErrInvalidInput, s)
	}
	return Grid{Rows: rows, Cols: cols}, nil
}

// Cells is the number of selectable cells.
func (g Grid) Cells() int {
	return g.Rows * g.Cols
}

// Normalize returns idx as a sorted set, rejecting any index outside the grid.
func (g Grid) Normalize(idx []int) ([]int, error) {
	n := g.Cells()
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: cell index %d out of range [0,%d)", ErrInvalidInput, i, n)
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ID is a captcha identifier that decodes from either a JSON number or a
// numeric string; the embeddable widget sends the latter.
type ID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	var n int64
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return fmt.Errorf("%w: captcha id %s", ErrInvalidInput, b)
	}
	*id = ID(n)
	return nil
}
