package profile

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"solar-bess-sizer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearSkyHalfYear(t *testing.T) {
	p, err := ClearSky(Site{Latitude: 0, Longitude: 0}, HalfYear(2023))
	require.NoError(t, err)
	require.Len(t, p, 4344)
	require.NoError(t, p.Validate())
	assert.InDelta(t, 1, p.Max(), 1e-12)

	// Midnight UTC on the prime meridian is dark; noon is bright.
	assert.Equal(t, 0.0, p[0])
	assert.Greater(t, p[12], 0.8)
}

func TestClearSkyLeapYearLength(t *testing.T) {
	assert.Equal(t, 4368, HalfYear(2024).Hours())
	assert.Equal(t, 8760, FullYear(2023).Hours())
}

func TestClearSkyPolarNight(t *testing.T) {
	h := Horizon{
		Start: time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	_, err := ClearSky(Site{Latitude: 89, Longitude: 0}, h)
	assert.ErrorIs(t, err, ErrNoSun)
}

func TestClearSkyInvalidSite(t *testing.T) {
	_, err := ClearSky(Site{Latitude: 91}, HalfYear(2023))
	assert.Error(t, err)
	_, err = ClearSky(Site{}, Horizon{})
	assert.Error(t, err)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Hour)
	c.now = func() time.Time { return now }

	key := CacheKey(Site{Latitude: 1, Longitude: 2}, 2024)
	c.Set(key, model.Profile{0.5, 1})

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, model.Profile{0.5, 1}, got)

	got[0] = 0.9
	again, _ := c.Get(key)
	assert.Equal(t, 0.5, again[0], "cached profile must not alias callers")

	now = now.Add(2 * time.Hour)
	_, ok = c.Get(key)
	assert.False(t, ok)
	c.evict()
	assert.Equal(t, 0, c.Len())
}

func TestNilCache(t *testing.T) {
	var c *Cache
	c.Set("k", model.Profile{1})
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheKeyDistinguishesYears(t *testing.T) {
	s := Site{Latitude: 51.5, Longitude: -0.1}
	assert.NotEqual(t, CacheKey(s, 2023), CacheKey(s, 2024))
	assert.Equal(t, CacheKey(s, 2023), CacheKey(Site{Latitude: 51.50001, Longitude: -0.1}, 2023))
}

func TestClearSkyProviderMemoizes(t *testing.T) {
	p := &ClearSkyProvider{Cache: NewCache(0)}
	site := Site{Latitude: 10, Longitude: 20}

	first, err := p.Profile(context.Background(), site, 2023)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Cache.Len())

	second, err := p.Profile(context.Background(), site, 2023)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.Cache.Len())
}

func TestReadCSV(t *testing.T) {
	t.Run("named column", func(t *testing.T) {
		p, err := ReadCSV(strings.NewReader("hour,availability\n0,0\n1,0.5\n2,1\n"), false)
		require.NoError(t, err)
		assert.Equal(t, model.Profile{0, 0.5, 1}, p)
	})

	t.Run("single column normalized", func(t *testing.T) {
		p, err := ReadCSV(strings.NewReader("watts\n0\n200\n400\n"), true)
		require.NoError(t, err)
		assert.Equal(t, model.Profile{0, 0.5, 1}, p)
	})

	t.Run("out of range without normalization", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("value\n2\n"), false)
		assert.Error(t, err)
	})

	t.Run("ambiguous header", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("a,b\n1,2\n"), false)
		assert.Error(t, err)
	})
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, model.Profile{0, 0.25, 1}))
	p, err := ReadCSV(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, model.Profile{0, 0.25, 1}, p)
}
