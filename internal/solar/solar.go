// Package solar computes sunrise, solar noon and sunset for an observing site.
// It uses the NOAA simplified sunrise equation and has no I/O.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSite is returned for sites with non-finite or out-of-range coordinates.
var ErrInvalidSite = errors.New("solar: invalid site")

const (
	j2000        = 2451545.0 // Julian date of 2000-01-01 12:00 TT
	unixEpochJD  = 2440587.5 // Julian date of 1970-01-01 00:00 UTC
	julianOffset = 0.0009
	ttOffsetDays = 69.184 / 86400.0 // TT - UTC
	obliquityDeg = 23.4397
	refraction   = -0.833 // degrees; atmospheric refraction plus solar disc
	dipPerRootM  = 2.076  // arcminutes of horizon dip per sqrt(metre)
)

// Site is an observing location.
type Site struct {
	Latitude  float64 // degrees, north positive
	Longitude float64 // degrees, east positive
	Elevation float64 // metres above sea level
}

// Validate reports whether the site can be used for calculations.
func (s Site) Validate() error {
	for _, v := range []float64{s.Latitude, s.Longitude, s.Elevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidSite)
		}
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidSite, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidSite, s.Longitude)
	}
	if s.Elevation < 0 {
		return fmt.Errorf("%w: elevation %v below sea level", ErrInvalidSite, s.Elevation)
	}
	return nil
}

// Kind classifies a solar day.
type Kind int

const (
	Normal     Kind = iota // the sun rises and sets
	PolarDay               // the sun never sets
	PolarNight             // the sun never rises
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case PolarDay:
		return "polar-day"
	case PolarNight:
		return "polar-night"
	default:
		return "unknown"
	}
}

// Day holds the solar events for one day at a site. Sunrise and Sunset are
// zero unless Kind is Normal. Noon is always set.
type Day struct {
	Index   int32 // days since J2000
	Kind    Kind
	Sunrise time.Time
	Noon    time.Time
	Sunset  time.Time
}

// Daylight returns the time between sunrise and sunset. It is 24h for a
// polar day and zero for a polar night.
func (d Day) Daylight() time.Duration {
	switch d.Kind {
	case PolarDay:
		return 24 * time.Hour
	case PolarNight:
		return 0
	}
	return d.Sunset.Sub(d.Sunrise)
}

// Ephemeris computes and caches the solar events for one site. The result
// for the most recently requested day is memoized. Not safe for concurrent use.
type Ephemeris struct {
	site   Site
	cached bool
	day    Day
}

// New returns an Ephemeris for the given site.
func New(site Site) (*Ephemeris, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &Ephemeris{site: site}, nil
}

// Site returns the observing site.
func (e *Ephemeris) Site() Site {
	return e.site
}

// Sunrise returns the time of sunrise for the given year and 1-based day of
// year. ok is false when the sun does not rise or set that day.
func (e *Ephemeris) Sunrise(year, yday int) (t time.Time, ok bool) {
	d := e.Day(year, yday)
	return d.Sunrise, d.Kind == Normal
}

// SolarNoon returns the time of solar transit for the given year and day of year.
func (e *Ephemeris) SolarNoon(year, yday int) time.Time {
	return e.Day(year, yday).Noon
}

// Sunset returns the time of sunset for the given year and 1-based day of
// year. ok is false when the sun does not rise or set that day.
func (e *Ephemeris) Sunset(year, yday int) (t time.Time, ok bool) {
	d := e.Day(year, yday)
	return d.Sunset, d.Kind == Normal
}

// Day returns all solar events for the given year and 1-based day of year.
func (e *Ephemeris) Day(year, yday int) Day {
	index := dayIndex(year, yday)
	if e.cached && index == e.day.Index {
		return e.day
	}
	e.day = compute(e.site, index)
	e.cached = true
	return e.day
}

// dayIndex returns the integer day number since J2000 for UTC midnight of
// the given date.
func dayIndex(year, yday int) int32 {
	midnight := time.Date(year, time.January, yday, 0, 0, 0, 0, time.UTC)
	jd := timeToJulian(midnight)
	return int32(math.Ceil(jd - (j2000 + julianOffset) + ttOffsetDays))
}

func compute(site Site, index int32) Day {
	// Mean solar time at the site.
	jStar := float64(index) + julianOffset - site.Longitude/360.0

	// Solar mean anomaly, equation of the center, ecliptic longitude.
	m := math.Mod(357.5291+0.98560028*jStar, 360)
	mRad := radians(m)
	c := 1.9148*math.Sin(mRad) + 0.02*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := math.Mod(m+c+180.0+102.9372, 360)
	lambdaRad := radians(lambda)

	transit := j2000 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	sinDelta := math.Sin(lambdaRad) * math.Sin(radians(obliquityDeg))
	cosDelta := math.Cos(math.Asin(sinDelta))

	latRad := radians(site.Latitude)
	horizon := radians(refraction - dipPerRootM*math.Sqrt(site.Elevation)/60.0)
	cosW0 := (math.Sin(horizon) - math.Sin(latRad)*sinDelta) / (math.Cos(latRad) * cosDelta)

	day := Day{Index: index, Noon: julianToTime(transit)}
	switch {
	case math.IsNaN(cosW0) || cosW0 > 1:
		day.Kind = PolarNight
	case cosW0 < -1:
		day.Kind = PolarDay
	default:
		w0 := degrees(math.Acos(cosW0))
		day.Kind = Normal
		day.Sunrise = julianToTime(transit - w0/360.0)
		day.Sunset = julianToTime(transit + w0/360.0)
	}
	return day
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

func timeToJulian(t time.Time) float64 {
	return float64(t.Unix())/86400.0 + unixEpochJD
}

func julianToTime(jd float64) time.Time {
	secs := math.Round((jd - unixEpochJD) * 86400)
	return time.Unix(int64(secs), 0).UTC()
}
