// Package costs holds technology cost and financial parameter tables and
// resolves values for a country with region and world fallbacks.
package costs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"solar-bess-sizer/internal/model"
)

// ErrNotFound is returned when no row matches a query even after fallback.
var ErrNotFound = errors.New("costs: no matching value")

// World is the region of last resort.
const World = "world"

// Record is one long-form row: value of variable for (region, year, tech, type).
// Tech and Type are optional.
type Record struct {
	Region   string  `yaml:"region" mapstructure:"region"`
	Year     int     `yaml:"year" mapstructure:"year"`
	Variable string  `yaml:"variable" mapstructure:"variable"`
	Tech     string  `yaml:"tech,omitempty" mapstructure:"tech"`
	Type     string  `yaml:"type,omitempty" mapstructure:"type"`
	Value    float64 `yaml:"value" mapstructure:"value"`
}

// Table is an in-memory long-form table. Matching is case-insensitive.
type Table struct {
	records []Record
}

func NewTable(records []Record) *Table {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Region = norm(r.Region)
		r.Variable = norm(r.Variable)
		r.Tech = norm(r.Tech)
		r.Type = norm(r.Type)
		out[i] = r
	}
	return &Table{records: out}
}

func (t *Table) Len() int { return len(t.records) }

// Match returns the values of every row for region and q's year/variable.
// An empty q.Tech or q.Type matches any row.
func (t *Table) Match(region string, q Query) []float64 {
	region = norm(region)
	q = q.normalized()
	var out []float64
	for _, r := range t.records {
		if r.Region != region || r.Year != q.Year || r.Variable != q.Variable {
			continue
		}
		if q.Tech != "" && r.Tech != q.Tech {
			continue
		}
		if q.Type != "" && r.Type != q.Type {
			continue
		}
		out = append(out, r.Value)
	}
	return out
}

// Years lists the distinct years in the table, ascending.
func (t *Table) Years() []int {
	seen := map[int]bool{}
	var years []int
	for _, r := range t.records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Query identifies a value. Country is the requested place; it may resolve to a
// proxy region or to World.
type Query struct {
	Country  string
	Year     int
	Variable string
	Tech     string
	Type     string
}

func (q Query) normalized() Query {
	q.Country = norm(q.Country)
	q.Variable = norm(q.Variable)
	q.Tech = norm(q.Tech)
	q.Type = norm(q.Type)
	return q
}

func (q Query) String() string {
	s := fmt.Sprintf("%s/%d/%s", q.Country, q.Year, q.Variable)
	if q.Tech != "" {
		s += "/" + q.Tech
	}
	if q.Type != "" {
		s += "/" + q.Type
	}
	return s
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Curve is a year-indexed sizing cost table ("capex learning curve").
type Curve struct {
	byYear map[int]model.TechCosts
}

// CurvePoint is one row of a Curve.
type CurvePoint struct {
	Year                int     `yaml:"year"`
	SolarPerMW          float64 `yaml:"solar_cost_per_mw"`
	StoragePowerPerMW   float64 `yaml:"bess_power_cost_per_mw"`
	StorageEnergyPerMWh float64 `yaml:"bess_energy_cost_per_mwh"`
}

func NewCurve(points []CurvePoint) (*Curve, error) {
	c := &Curve{byYear: make(map[int]model.TechCosts, len(points))}
	for _, p := range points {
		tc := model.TechCosts{
			Year:                p.Year,
			SolarPerMW:          p.SolarPerMW,
			StoragePowerPerMW:   p.StoragePowerPerMW,
			StorageEnergyPerMWh: p.StorageEnergyPerMWh,
		}
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("cost curve year %d: %w", p.Year, err)
		}
		if _, dup := c.byYear[p.Year]; dup {
			return nil, fmt.Errorf("cost curve year %d listed twice", p.Year)
		}
		c.byYear[p.Year] = tc
	}
	return c, nil
}

// ForYear returns the costs for year or ErrNotFound.
func (c *Curve) ForYear(year int) (model.TechCosts, error) {
	if c != nil {
		if tc, ok := c.byYear[year]; ok {
			return tc, nil
		}
	}
	return model.TechCosts{}, fmt.Errorf("%w: sizing costs for year %d", ErrNotFound, year)
}

// Years lists the curve's years, ascending.
func (c *Curve) Years() []int {
	if c == nil {
		return nil
	}
	years := make([]int, 0, len(c.byYear))
	for y := range c.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
