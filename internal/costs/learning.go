package costs

import (
	"fmt"
	"math"
	"sort"

	"solar-bess-sizer/internal/model"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

const (
	// regionWeight is the share of a curve's own learning rate in the blend
	// with the global rate.
	regionWeight = 0.6
	minRate      = -0.20
	maxRate      = 0.05
	// smoothing pulls each filled year toward the mean of its neighbours.
	smoothing = 0.3
)

// Rates are year-over-year relative cost changes, one per curve component.
// -0.1 means costs fall 10% a year.
type Rates struct {
	Solar         float64 `json:"solar"`
	StoragePower  float64 `json:"storage_power"`
	StorageEnergy float64 `json:"storage_energy"`
}

func (r Rates) at(k int) float64 {
	switch k {
	case 0:
		return r.Solar
	case 1:
		return r.StoragePower
	default:
		return r.StorageEnergy
	}
}

func (r *Rates) set(k int, v float64) {
	switch k {
	case 0:
		r.Solar = v
	case 1:
		r.StoragePower = v
	default:
		r.StorageEnergy = v
	}
}

const numComponents = 3

func component(tc model.TechCosts, k int) float64 {
	switch k {
	case 0:
		return tc.SolarPerMW
	case 1:
		return tc.StoragePowerPerMW
	default:
		return tc.StorageEnergyPerMWh
	}
}

func setComponent(tc *model.TechCosts, k int, v float64) {
	switch k {
	case 0:
		tc.SolarPerMW = v
	case 1:
		tc.StoragePowerPerMW = v
	default:
		tc.StorageEnergyPerMWh = v
	}
}

// GlobalRates averages the curves year by year and returns the mean
// year-over-year change of that average. Years missing from a curve do not
// count toward its average; a change across a gap is spread over its years.
func GlobalRates(curves ...*Curve) Rates {
	seen := map[int]bool{}
	var years []int
	for _, c := range curves {
		for _, y := range c.Years() {
			if !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	sort.Ints(years)

	var out Rates
	for k := 0; k < numComponents; k++ {
		avg := make([]float64, len(years))
		for i, y := range years {
			sum, n := 0.0, 0
			for _, c := range curves {
				if tc, err := c.ForYear(y); err == nil {
					sum += component(tc, k)
					n++
				}
			}
			avg[i] = sum / float64(n)
		}
		if changes := yearlyChanges(years, avg); len(changes) > 0 {
			out.set(k, stat.Mean(changes, nil))
		}
	}
	return out
}

func yearlyChanges(years []int, values []float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			out = append(out, (values[i]-values[i-1])/values[i-1]/float64(years[i]-years[i-1]))
		}
	}
	return out
}

// blendRate is the median year-over-year change of values, clamped to
// [minRate, maxRate] and blended with global. Short series use global as is.
func blendRate(years []int, values []float64, global float64) float64 {
	if len(values) < 3 {
		return global
	}
	changes := yearlyChanges(years, values)
	if len(changes) == 0 {
		return global
	}
	local := math.Max(minRate, math.Min(maxRate, median(changes)))
	return regionWeight*local + (1-regionWeight)*global
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Fill returns a curve with every year between the first and last listed year.
// Each component is interpolated with a monotone cubic (linear for two points).
// Where costs fall across a gap the value is kept inside the envelope the
// blended learning rate allows and inside the span of the two listed years.
// Filled years are then smoothed toward their neighbours. Listed years are kept.
func (c *Curve) Fill(global Rates) *Curve {
	years := c.Years()
	out := &Curve{byYear: make(map[int]model.TechCosts)}
	for _, y := range years {
		out.byYear[y] = c.byYear[y]
	}
	if len(years) < 2 {
		return out
	}
	first, last := years[0], years[len(years)-1]
	if last-first+1 == len(years) {
		return out
	}
	for y := first; y <= last; y++ {
		if _, ok := out.byYear[y]; !ok {
			out.byYear[y] = model.TechCosts{Year: y}
		}
	}

	xs := make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
	}
	for k := 0; k < numComponents; k++ {
		ys := make([]float64, len(years))
		for i, y := range years {
			ys[i] = component(c.byYear[y], k)
		}
		rate := blendRate(years, ys, global.at(k))

		var fit interp.FittablePredictor = &interp.PiecewiseLinear{}
		if len(years) >= 3 {
			fit = &interp.FritschButland{}
		}
		if err := fit.Fit(xs, ys); err != nil {
			continue
		}

		full := make([]float64, last-first+1)
		filled := make([]bool, len(full))
		next := 0
		for y := first; y <= last; y++ {
			i := y - first
			if years[next] == y {
				full[i] = ys[next]
				next++
				continue
			}
			v := fit.Predict(float64(y))
			prevY, nextY := years[next-1], years[next]
			prevV, nextV := ys[next-1], ys[next]
			if prevV > nextV {
				hi := prevV * (1 + rate*float64(y-prevY))
				lo := nextV * (1 + rate*float64(nextY-y))
				v = math.Max(lo, math.Min(hi, v))
				v = math.Max(nextV, math.Min(prevV, v))
			}
			full[i] = math.Max(0, v)
			filled[i] = true
		}

		for i, v := range full {
			if filled[i] {
				v = (1-smoothing)*v + smoothing*(full[i-1]+full[i+1])/2
			}
			tc := out.byYear[first+i]
			setComponent(&tc, k, v)
			out.byYear[first+i] = tc
		}
	}
	return out
}

// Exponential is a fitted cost trajectory A·exp(B·(year-X0)).
type Exponential struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	X0 int     `json:"x0"`
	// R2 is the coefficient of determination on the fitted values.
	R2 float64 `json:"r2"`
}

func (e Exponential) At(year int) float64 {
	return e.A * math.Exp(e.B*float64(year-e.X0))
}

// FitExponential fits A·exp(B·(year-years[0])) by least squares on log values.
// years must be ascending and every value positive.
func FitExponential(years []int, values []float64) (Exponential, error) {
	if len(years) != len(values) {
		return Exponential{}, fmt.Errorf("exponential fit: %d years for %d values", len(years), len(values))
	}
	if len(years) < 2 {
		return Exponential{}, fmt.Errorf("exponential fit: need at least 2 points, got %d", len(years))
	}
	x0 := years[0]
	xs := make([]float64, len(years))
	logs := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 {
			return Exponential{}, fmt.Errorf("exponential fit: value %v at %d is not positive", v, years[i])
		}
		if i > 0 && years[i] <= years[i-1] {
			return Exponential{}, fmt.Errorf("exponential fit: years not ascending at %d", years[i])
		}
		xs[i] = float64(years[i] - x0)
		logs[i] = math.Log(v)
	}
	alpha, beta := stat.LinearRegression(xs, logs, nil, false)
	e := Exponential{A: math.Exp(alpha), B: beta, X0: x0}
	estimates := make([]float64, len(values))
	for i, y := range years {
		estimates[i] = e.At(y)
	}
	e.R2 = stat.RSquaredFrom(estimates, values, nil)
	return e, nil
}

// Project extends the curve through year with an exponential fitted to each
// component's listed years. A component with fewer than two positive values
// stays flat at its last value.
func (c *Curve) Project(through int) (*Curve, error) {
	years := c.Years()
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: empty cost curve", ErrNotFound)
	}
	out := &Curve{byYear: make(map[int]model.TechCosts, len(years))}
	for _, y := range years {
		out.byYear[y] = c.byYear[y]
	}
	last := years[len(years)-1]
	if through <= last {
		return out, nil
	}

	for k := 0; k < numComponents; k++ {
		var fy []int
		var fv []float64
		for _, y := range years {
			if v := component(c.byYear[y], k); v > 0 {
				fy = append(fy, y)
				fv = append(fv, v)
			}
		}
		fit, err := FitExponential(fy, fv)
		flat := component(c.byYear[last], k)
		for y := last + 1; y <= through; y++ {
			tc := out.byYear[y]
			tc.Year = y
			v := flat
			if err == nil {
				v = fit.At(y)
			}
			setComponent(&tc, k, v)
			out.byYear[y] = tc
		}
	}
	return out, nil
}
