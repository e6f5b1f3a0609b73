// Package choropleth maps a per-feature statistic to a fill colour through a
// fixed grade/colour table, and describes that table as legend bins.
package choropleth

import (
	"fmt"
	"math"
)

// Mode selects how a value is compared with the grades.
type Mode int

const (
	// Above picks the colour of the highest grade strictly below the value;
	// values at or below the second grade share the first colour.
	Above Mode = iota
	// AtLeast picks the colour of the highest grade not above the value.
	AtLeast
)

// Scheme is an ascending list of grades with one colour per grade.
type Scheme struct {
	Name   string    `json:"name"`
	Label  string    `json:"label"`
	Grades []float64 `json:"grades"`
	Colors []string  `json:"colors"`
	Mode   Mode      `json:"-"`
}

// Validate checks that grades ascend and pair up with colours.
func (s Scheme) Validate() error {
	if len(s.Grades) == 0 {
		return fmt.Errorf("choropleth: scheme %q has no grades", s.Name)
	}
	if len(s.Grades) != len(s.Colors) {
		return fmt.Errorf("choropleth: scheme %q has %d grades and %d colors", s.Name, len(s.Grades), len(s.Colors))
	}
	for i := 1; i < len(s.Grades); i++ {
		if s.Grades[i] <= s.Grades[i-1] {
			return fmt.Errorf("choropleth: scheme %q grades must ascend", s.Name)
		}
	}
	return nil
}

// Color returns the fill colour for v. NaN maps to the first colour.
func (s Scheme) Color(v float64) string {
	if len(s.Colors) == 0 {
		return ""
	}
	if math.IsNaN(v) {
		return s.Colors[0]
	}
	switch s.Mode {
	case AtLeast:
		for i := len(s.Grades) - 1; i >= 0; i-- {
			if v >= s.Grades[i] {
				return s.Colors[i]
			}
		}
	default:
		for i := len(s.Grades) - 1; i >= 1; i-- {
			if v > s.Grades[i] {
				return s.Colors[i]
			}
		}
	}
	return s.Colors[0]
}

// Bin is one legend entry. The last bin is open-ended and has no upper
// bound.
type Bin struct {
	From  float64  `json:"from"`
	To    *float64 `json:"to,omitempty"`
	Color string   `json:"color"`
}

// Legend returns one bin per grade, lowest first.
func (s Scheme) Legend() []Bin {
	bins := make([]Bin, len(s.Grades))
	for i, g := range s.Grades {
		bins[i] = Bin{From: g, Color: s.Colors[i]}
		if i+1 < len(s.Grades) {
			to := s.Grades[i+1]
			bins[i].To = &to
		}
	}
	return bins
}
