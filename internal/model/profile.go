package model

import (
	"errors"
	"fmt"
	"math"
)

// Profile is an ordered per-period solar availability series.
// Values are normalized generation factors in [0,1]; one period is one hour,
// so MW and MWh per period are interchangeable throughout the model.
type Profile []float64

func (p Profile) Validate() error {
	if len(p) == 0 {
		return errors.New("profile must contain at least one period")
	}
	for t, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("profile[%d]=%v must be in [0, 1]", t, v)
		}
	}
	return nil
}

func (p Profile) Len() int { return len(p) }

func (p Profile) Sum() float64 {
	s := 0.0
	for _, v := range p {
		s += v
	}
	return s
}

func (p Profile) Max() float64 {
	m := 0.0
	for _, v := range p {
		if v > m {
			m = v
		}
	}
	return m
}

// Tile repeats the profile until it is exactly n periods long.
// A representative day or half-year can be stretched to a full horizon this way.
func (p Profile) Tile(n int) Profile {
	if len(p) == 0 || n <= 0 {
		return nil
	}
	out := make(Profile, n)
	for t := range out {
		out[t] = p[t%len(p)]
	}
	return out
}

// Demand is the load the system tries to serve.
// Either Series is set (one value per period) or the constant Flat MW is broadcast.
type Demand struct {
	FlatMW float64
	Series []float64
}

// FlatDemand returns a constant load broadcast to every period.
func FlatDemand(mw float64) Demand { return Demand{FlatMW: mw} }

// SeriesDemand returns a per-period load.
func SeriesDemand(series []float64) Demand { return Demand{Series: series} }

func (d Demand) Validate(periods int) error {
	if d.Series == nil {
		if d.FlatMW < 0 || math.IsNaN(d.FlatMW) {
			return fmt.Errorf("demand %v MW must be >= 0", d.FlatMW)
		}
		return nil
	}
	if len(d.Series) != periods {
		return fmt.Errorf("demand series has %d periods, profile has %d", len(d.Series), periods)
	}
	for t, v := range d.Series {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("demand[%d]=%v must be >= 0", t, v)
		}
	}
	return nil
}

// At returns the demand for period t.
func (d Demand) At(t int) float64 {
	if d.Series != nil {
		return d.Series[t]
	}
	return d.FlatMW
}

// Expand returns demand as an explicit series of the given length.
func (d Demand) Expand(periods int) []float64 {
	out := make([]float64, periods)
	for t := range out {
		out[t] = d.At(t)
	}
	return out
}

// Total is the demand summed over the horizon.
func (d Demand) Total(periods int) float64 {
	s := 0.0
	for t := 0; t < periods; t++ {
		s += d.At(t)
	}
	return s
}
