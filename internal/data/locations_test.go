package data

import (
	"path/filepath"
	"strings"
	"testing"

	"solar-bess-sizer/internal/costs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testList() *LocationList {
	return &LocationList{Locations: []Location{
		{Country: "Kenya", Latitude: -0.02, Longitude: 37.9, Region: "Eastern Africa", Continent: "Africa"},
		{Country: "Chad", Latitude: 15.5, Longitude: 18.7, Region: "Middle Africa", Continent: "Africa"},
	}}
}

func TestFindAndSelect(t *testing.T) {
	l := testList()
	loc, ok := l.Find(" kenya ")
	require.True(t, ok)
	assert.Equal(t, 37.9, loc.Site().Longitude)

	sel, err := l.Select([]string{"chad", "Kenya"})
	require.NoError(t, err)
	assert.Equal(t, "Chad", sel[0].Country)

	all, err := l.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = l.Select([]string{"Kenya", "Atlantis"})
	assert.ErrorContains(t, err, "Atlantis")
}

func TestPlaces(t *testing.T) {
	p := testList().Places()
	assert.Equal(t, costs.Place{Region: "Eastern Africa", Continent: "Africa"}, p["kenya"])
}

func TestSaveLoadLocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "locations.json")
	l := testList()
	l.Sort()
	require.NoError(t, SaveLocations(l, path))

	got, err := LoadLocations(path)
	require.NoError(t, err)
	assert.Equal(t, "Chad", got.Locations[0].Country)
	assert.Equal(t, l.Locations, got.Locations)
}

func TestReadLocationsCSV(t *testing.T) {
	in := "Country,Latitude,Longitude,Region\nKenya,-0.02,37.9,Eastern Africa\nChad,15.5,18.7,Middle Africa\n"
	locs, err := ReadLocationsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, Location{Country: "Kenya", Latitude: -0.02, Longitude: 37.9, Region: "Eastern Africa"}, locs[0])

	_, err = ReadLocationsCSV(strings.NewReader("Country,Latitude\nKenya,1\n"))
	assert.Error(t, err)
	_, err = ReadLocationsCSV(strings.NewReader("Country,Latitude,Longitude\nNowhere,95,0\n"))
	assert.Error(t, err)
}
