package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"solar-bess-sizer/internal/data"
)

func main() {
	var (
		csvPath    = flag.String("csv", "", "Coordinates CSV (Country, Latitude, Longitude[, Region, Continent, Altitude])")
		outputPath = flag.String("output", "", "Output file path (default: ./data/locations.json)")
		seedFile   = flag.String("seed", "", "Path to existing locations file to use as seed")
	)
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("--csv is required")
	}
	if *outputPath == "" {
		*outputPath = data.GetDefaultLocationsPath()
	}

	// Load existing locations as seed if provided
	var existingLocations []data.Location
	seed := *seedFile
	if seed == "" {
		seed = data.GetDefaultLocationsPath()
	}
	if list, err := data.LoadLocations(seed); err == nil {
		existingLocations = list.Locations
		fmt.Printf("Loaded %d existing locations from %s\n", len(existingLocations), seed)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *csvPath, err)
	}
	fresh, err := data.ReadLocationsCSV(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read locations: %v", err)
	}
	fmt.Printf("Read %d locations from %s\n", len(fresh), *csvPath)

	list := &data.LocationList{
		UpdatedAt: time.Now().Format(time.RFC3339),
		Locations: mergeLocations(existingLocations, fresh),
	}
	list.Sort()

	if err := data.SaveLocations(list, *outputPath); err != nil {
		log.Fatalf("Failed to save locations: %v", err)
	}

	fmt.Printf("Saved %d locations to %s\n", len(list.Locations), *outputPath)
}

// mergeLocations overlays fresh rows on the seed by country. Region and
// continent survive from the seed when the CSV leaves them blank.
func mergeLocations(seed, fresh []data.Location) []data.Location {
	byCountry := make(map[string]data.Location, len(seed)+len(fresh))
	for _, loc := range seed {
		byCountry[strings.ToLower(loc.Country)] = loc
	}
	for _, loc := range fresh {
		key := strings.ToLower(loc.Country)
		if old, ok := byCountry[key]; ok {
			if loc.Region == "" {
				loc.Region = old.Region
			}
			if loc.Continent == "" {
				loc.Continent = old.Continent
			}
		}
		byCountry[key] = loc
	}

	locations := make([]data.Location, 0, len(byCountry))
	for _, loc := range byCountry {
		locations = append(locations, loc)
	}
	return locations
}
