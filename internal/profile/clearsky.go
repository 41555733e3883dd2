// Package profile produces normalized hourly solar availability series.
package profile

import (
	"errors"
	"fmt"
	"math"
	"time"

	"solar-bess-sizer/internal/model"

	"gonum.org/v1/gonum/floats"
)

const solarConstant = 1361.0 // W/m²

// ErrNoSun is returned when a horizon has no daylight at all (polar night).
var ErrNoSun = errors.New("profile: no daylight in horizon")

// Horizon is an hourly time range [Start, End).
type Horizon struct {
	Start time.Time
	End   time.Time
}

// HalfYear is Jan 1 00:00 through Jun 30 23:00 UTC of year.
func HalfYear(year int) Horizon {
	return Horizon{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FullYear is the whole calendar year in UTC.
func FullYear(year int) Horizon {
	return Horizon{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (h Horizon) Hours() int {
	if !h.End.After(h.Start) {
		return 0
	}
	return int(h.End.Sub(h.Start) / time.Hour)
}

// Site is a location for the clear-sky model.
type Site struct {
	Latitude  float64
	Longitude float64
	AltitudeM float64
}

func (s Site) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 || math.IsNaN(s.Latitude) {
		return fmt.Errorf("latitude %v out of range", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 || math.IsNaN(s.Longitude) {
		return fmt.Errorf("longitude %v out of range", s.Longitude)
	}
	return nil
}

// ClearSky returns hourly clear-sky GHI over h normalized to its maximum.
func ClearSky(site Site, h Horizon) (model.Profile, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	n := h.Hours()
	if n == 0 {
		return nil, fmt.Errorf("empty horizon %s..%s", h.Start.Format(time.RFC3339), h.End.Format(time.RFC3339))
	}
	ghi := make([]float64, n)
	for i := range ghi {
		ghi[i] = GHI(h.Start.Add(time.Duration(i)*time.Hour), site)
	}
	peak := floats.Max(ghi)
	if peak <= 0 {
		return nil, fmt.Errorf("%w at %.4f,%.4f", ErrNoSun, site.Latitude, site.Longitude)
	}
	floats.Scale(1/peak, ghi)
	return model.Profile(ghi), nil
}

// GHI is the Ineichen-Perez clear-sky global horizontal irradiance in W/m² at t.
func GHI(t time.Time, site Site) float64 {
	t = t.UTC()
	n := float64(t.YearDay())

	decl := 23.45 * math.Sin(rad(360.0/365.0*(n-81)))

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
	tst := utcMin + 4*site.Longitude + equationOfTime(t)
	hourAngle := tst/4 - 180

	lat, d, ha := rad(site.Latitude), rad(decl), rad(hourAngle)
	cosZ := math.Sin(lat)*math.Sin(d) + math.Cos(lat)*math.Cos(d)*math.Cos(ha)
	zenith := deg(math.Acos(math.Max(-1, math.Min(1, cosZ))))
	if zenith >= 90 {
		return 0
	}

	g0 := solarConstant * (1 + 0.033*math.Cos(rad(360*(n-3)/365)))

	const (
		linkeTurbidity = 2.0
		dniScale       = 0.7
		extinction     = 0.027
	)
	airMass := 1 / (math.Cos(rad(zenith)) + 0.50572*math.Pow(96.07995-zenith, -1.6364))
	dni := g0 * dniScale * math.Exp(-extinction*airMass*linkeTurbidity*math.Exp(-site.AltitudeM/8000))
	diffuseFrac := 0.1 + 0.05*math.Sin(math.Pi*(n-100)/365)
	dhi := diffuseFrac * g0 * math.Sin(rad(zenith))
	return math.Max(0, dni*math.Cos(rad(zenith))+dhi)
}

// equationOfTime is apparent minus mean solar time, in minutes.
func equationOfTime(t time.Time) float64 {
	jd := 2440587.5 + float64(t.Unix())/86400
	c := (jd - 2451545.0) / 36525

	l0 := fixAngle(280.46646 + c*(36000.76983+c*0.0003032))
	m := fixAngle(357.52911 + c*(35999.05029-c*0.0001537))
	e := 0.016708634 - c*(0.000042037+c*0.0000001267)
	eps := 23 + (26+(21.448-c*(46.815+c*(0.00059-c*0.001813)))/60)/60

	y := math.Pow(math.Tan(rad(eps)/2), 2)
	return 4 * deg(y*math.Sin(rad(2*l0))-
		2*e*math.Sin(rad(m))+
		4*e*y*math.Sin(rad(m))*math.Cos(rad(2*l0))-
		0.5*y*y*math.Sin(rad(4*l0))-
		1.25*e*e*math.Sin(rad(2*m)))
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func deg(r float64) float64 { return r * 180 / math.Pi }

func fixAngle(a float64) float64 { return math.Mod(math.Mod(a, 360)+360, 360) }
