package costs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gopkg.in/yaml.v3"
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// File is the on-disk shape of a cost file (YAML).
type File struct {
	Curve []CurvePoint `yaml:"curve"`
	// GlobalCurve supplies the global learning rate for FillGaps. Empty means
	// the rate of Curve itself.
	GlobalCurve []CurvePoint `yaml:"global_curve"`
	// FillGaps interpolates the years missing between the first and last
	// curve year.
	FillGaps bool `yaml:"fill_gaps"`
	// ProjectThrough extends the curve to this year with an exponential fit.
	ProjectThrough int `yaml:"project_through"`

	Records    []Record         `yaml:"records"`
	ProxyRules []ProxyRule      `yaml:"proxy_rules"`
	Places     map[string]Place `yaml:"places"`
}

// Bundle is a loaded cost file.
type Bundle struct {
	Curve  *Curve
	Lookup *Hierarchical
}

// Build validates f and indexes it.
func (f File) Build() (*Bundle, error) {
	curve, err := NewCurve(f.Curve)
	if err != nil {
		return nil, err
	}
	if f.FillGaps {
		rates := GlobalRates(curve)
		if len(f.GlobalCurve) > 0 {
			global, err := NewCurve(f.GlobalCurve)
			if err != nil {
				return nil, fmt.Errorf("global curve: %w", err)
			}
			rates = GlobalRates(global)
		}
		curve = curve.Fill(rates)
	}
	if f.ProjectThrough > 0 && len(curve.Years()) > 0 {
		if curve, err = curve.Project(f.ProjectThrough); err != nil {
			return nil, err
		}
	}
	places := make(map[string]Place, len(f.Places))
	for k, v := range f.Places {
		places[norm(k)] = v
	}
	return &Bundle{
		Curve: curve,
		Lookup: &Hierarchical{
			Table:  NewTable(f.Records),
			Rules:  f.ProxyRules,
			Places: places,
		},
	}, nil
}

// LoadFile reads a YAML cost file.
func LoadFile(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ReadRecordsCSV reads long-form rows with columns region, year, variable, value
// and optional tech and type.
func ReadRecordsCSV(r io.Reader) ([]Record, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read cost csv: %w", df.Err)
	}
	cols, err := columns(df, []string{"region", "year", "variable", "value"}, []string{"tech", "type"})
	if err != nil {
		return nil, err
	}
	years, err := df.Col(cols["year"]).Int()
	if err != nil {
		return nil, fmt.Errorf("cost csv year column: %w", err)
	}
	values := df.Col(cols["value"]).Float()
	regions := df.Col(cols["region"]).Records()
	variables := df.Col(cols["variable"]).Records()
	techs := optionalRecords(df, cols["tech"])
	types := optionalRecords(df, cols["type"])

	out := make([]Record, df.Nrow())
	for i := range out {
		out[i] = Record{
			Region:   regions[i],
			Year:     years[i],
			Variable: variables[i],
			Tech:     techs[i],
			Type:     types[i],
			Value:    values[i],
		}
	}
	return out, nil
}

// ReadCurveCSV reads year, solar_cost_per_mw, bess_energy_cost_per_mwh and
// optional bess_power_cost_per_mw columns.
func ReadCurveCSV(r io.Reader) (*Curve, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, fmt.Errorf("read cost curve csv: %w", df.Err)
	}
	cols, err := columns(df, []string{"year", "solar_cost_per_mw", "bess_energy_cost_per_mwh"}, []string{"bess_power_cost_per_mw"})
	if err != nil {
		return nil, err
	}
	years, err := df.Col(cols["year"]).Int()
	if err != nil {
		return nil, fmt.Errorf("cost curve year column: %w", err)
	}
	solar := df.Col(cols["solar_cost_per_mw"]).Float()
	energy := df.Col(cols["bess_energy_cost_per_mwh"]).Float()
	power := make([]float64, df.Nrow())
	if c := cols["bess_power_cost_per_mw"]; c != "" {
		power = df.Col(c).Float()
	}
	points := make([]CurvePoint, df.Nrow())
	for i := range points {
		points[i] = CurvePoint{Year: years[i], SolarPerMW: solar[i], StoragePowerPerMW: power[i], StorageEnergyPerMWh: energy[i]}
	}
	return NewCurve(points)
}

// columns maps lower-case logical names to the header names of df.
func columns(df dataframe.DataFrame, required, optional []string) (map[string]string, error) {
	byLower := map[string]string{}
	for _, n := range df.Names() {
		byLower[strings.ToLower(strings.TrimSpace(n))] = n
	}
	out := map[string]string{}
	for _, want := range required {
		n, ok := byLower[want]
		if !ok {
			return nil, fmt.Errorf("cost csv: missing column %q", want)
		}
		out[want] = n
	}
	for _, want := range optional {
		out[want] = byLower[want]
	}
	return out, nil
}

func optionalRecords(df dataframe.DataFrame, col string) []string {
	if col == "" {
		return make([]string, df.Nrow())
	}
	recs := df.Col(col).Records()
	for i, r := range recs {
		if r == "NaN" {
			recs[i] = ""
		}
	}
	return recs
}
