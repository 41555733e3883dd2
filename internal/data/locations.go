package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/profile"

	"github.com/go-gota/gota/dataframe"
)

// Location is a country with the representative coordinates used for its solar profile.
type Location struct {
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m,omitempty"`
	Region    string  `json:"region,omitempty"`    // e.g. "Eastern Africa"
	Continent string  `json:"continent,omitempty"` // e.g. "Africa"
}

func (l Location) Site() profile.Site {
	return profile.Site{Latitude: l.Latitude, Longitude: l.Longitude, AltitudeM: l.AltitudeM}
}

// LocationList represents a collection of locations
type LocationList struct {
	UpdatedAt string     `json:"updated_at"` // ISO 8601 timestamp
	Locations []Location `json:"locations"`
}

// Find returns the location of a country, matched case-insensitively.
func (l *LocationList) Find(country string) (Location, bool) {
	want := strings.ToLower(strings.TrimSpace(country))
	for _, loc := range l.Locations {
		if strings.ToLower(loc.Country) == want {
			return loc, true
		}
	}
	return Location{}, false
}

// Select returns the named countries in the given order, or every location when
// names is empty. Unknown names are an error.
func (l *LocationList) Select(names []string) ([]Location, error) {
	if len(names) == 0 {
		return append([]Location(nil), l.Locations...), nil
	}
	out := make([]Location, 0, len(names))
	var missing []string
	for _, n := range names {
		loc, ok := l.Find(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		out = append(out, loc)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown countries: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Places maps lower-case country names to their region and continent for
// proxy cost lookups.
func (l *LocationList) Places() map[string]costs.Place {
	out := make(map[string]costs.Place, len(l.Locations))
	for _, loc := range l.Locations {
		out[strings.ToLower(loc.Country)] = costs.Place{Region: loc.Region, Continent: loc.Continent}
	}
	return out
}

// Sort orders locations by country name.
func (l *LocationList) Sort() {
	sort.Slice(l.Locations, func(i, j int) bool { return l.Locations[i].Country < l.Locations[j].Country })
}

// LoadLocations loads locations from a JSON file
func LoadLocations(filePath string) (*LocationList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}

	var list LocationList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse locations file: %w", err)
	}

	return &list, nil
}

// SaveLocations saves locations to a JSON file
func SaveLocations(list *LocationList, filePath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal locations: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write locations file: %w", err)
	}

	return nil
}

// ReadLocationsCSV reads a coordinates table with columns Country, Latitude,
// Longitude and optional Region, Continent and Altitude.
func ReadLocationsCSV(r io.Reader) ([]Location, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, fmt.Errorf("read locations csv: %w", df.Err)
	}
	cols := map[string]string{}
	for _, n := range df.Names() {
		cols[strings.ToLower(strings.TrimSpace(n))] = n
	}
	for _, req := range []string{"country", "latitude", "longitude"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("locations csv: missing column %q", req)
		}
	}
	countries := df.Col(cols["country"]).Records()
	lats := df.Col(cols["latitude"]).Float()
	lons := df.Col(cols["longitude"]).Float()
	text := func(name string) []string {
		c, ok := cols[name]
		if !ok {
			return make([]string, df.Nrow())
		}
		recs := df.Col(c).Records()
		for i, v := range recs {
			if v == "NaN" {
				recs[i] = ""
			}
		}
		return recs
	}
	regions := text("region")
	continents := text("continent")
	alts := make([]float64, df.Nrow())
	if c, ok := cols["altitude"]; ok {
		alts = df.Col(c).Float()
	}

	out := make([]Location, df.Nrow())
	for i := range out {
		out[i] = Location{
			Country:   strings.TrimSpace(countries[i]),
			Latitude:  lats[i],
			Longitude: lons[i],
			AltitudeM: alts[i],
			Region:    regions[i],
			Continent: continents[i],
		}
		if err := out[i].Site().Validate(); err != nil {
			return nil, fmt.Errorf("locations csv row %d (%s): %w", i+1, out[i].Country, err)
		}
	}
	return out, nil
}

// GetDefaultLocationsPath returns the default path for locations file
func GetDefaultLocationsPath() string {
	// Try environment variable first
	if path := os.Getenv("LOCATIONS_FILE"); path != "" {
		return path
	}
	// Default to data/locations.json in project root
	return "./data/locations.json"
}
