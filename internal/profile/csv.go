package profile

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"solar-bess-sizer/internal/model"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
)

// valueColumns are the header names recognized for the availability column, in order.
var valueColumns = []string{"availability", "profile", "value", "ghi"}

// ReadCSV reads a one-value-per-row profile with a header line. The first
// recognized column is used, or the only column if there is just one.
// When normalize is set the series is divided by its maximum.
func ReadCSV(r io.Reader, normalize bool) (model.Profile, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, fmt.Errorf("read profile csv: %w", df.Err)
	}
	col, err := pickColumn(df.Names())
	if err != nil {
		return nil, err
	}
	s := df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("profile column %q: %w", col, s.Err)
	}
	vals := s.Float()
	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("profile row %d: not a number", i+1)
		}
	}
	if normalize {
		peak := floats.Max(vals)
		if peak <= 0 {
			return nil, fmt.Errorf("%w in csv profile", ErrNoSun)
		}
		floats.Scale(1/peak, vals)
	}
	p := model.Profile(vals)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func LoadCSV(path string, normalize bool) (model.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ReadCSV(f, normalize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func pickColumn(names []string) (string, error) {
	for _, want := range valueColumns {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), want) {
				return n, nil
			}
		}
	}
	if len(names) == 1 {
		return names[0], nil
	}
	return "", fmt.Errorf("profile csv: none of %v in header %v", valueColumns, names)
}

// WriteCSV writes p with an "hour,availability" header.
func WriteCSV(w io.Writer, p model.Profile) error {
	if _, err := fmt.Fprintln(w, "hour,availability"); err != nil {
		return err
	}
	for t, v := range p {
		if _, err := fmt.Fprintf(w, "%d,%.7f\n", t, v); err != nil {
			return err
		}
	}
	return nil
}
