package ingestion

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/skypies/geo"
)

// BoundingBox scopes a state-vector query to a country. SW holds the
// south/west corner, NE the north/east corner.
type BoundingBox struct {
	geo.LatlongBox
}

func newBox(north, south, east, west float64) BoundingBox {
	return BoundingBox{geo.LatlongBox{
		SW: geo.Latlong{Lat: south, Long: west},
		NE: geo.Latlong{Lat: north, Long: east},
	}}
}

// North, South, East and West expose the box edges by name.
func (b BoundingBox) North() float64 { return b.NE.Lat }
func (b BoundingBox) South() float64 { return b.SW.Lat }
func (b BoundingBox) East() float64  { return b.NE.Long }
func (b BoundingBox) West() float64  { return b.SW.Long }

// ContainsPoint reports whether lat/lon falls inside the box.
func (b BoundingBox) ContainsPoint(lat, lon float64) bool {
	return b.Contains(geo.Latlong{Lat: lat, Long: lon})
}

// QueryParams renders the box as OpenSky lamin/lomin/lamax/lomax parameters.
func (b BoundingBox) QueryParams() url.Values {
	return url.Values{
		"lamin": {formatCoord(b.South())},
		"lomin": {formatCoord(b.West())},
		"lamax": {formatCoord(b.North())},
		"lomax": {formatCoord(b.East())},
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// countryBoxes is a coarse rectangle per supported country.
var countryBoxes = map[string]BoundingBox{
	"Australia":      newBox(-10.0, -44.0, 154.0, 112.0),
	"United States":  newBox(49.0, 24.0, -66.0, -125.0),
	"United Kingdom": newBox(61.0, 49.0, 2.0, -8.0),
	"Germany":        newBox(55.0, 47.0, 15.0, 6.0),
	"France":         newBox(51.0, 42.0, 8.0, -5.0),
	"Japan":          newBox(46.0, 24.0, 146.0, 129.0),
	"Singapore":      newBox(1.5, 1.2, 104.0, 103.6),
	"Canada":         newBox(70.0, 42.0, -52.0, -141.0),
	"Netherlands":    newBox(53.6, 50.7, 7.3, 3.3),
}

// LookupBoundingBox returns the box for a country name. Unknown countries
// return ok=false and callers query globally.
func LookupBoundingBox(country string) (BoundingBox, bool) {
	b, ok := countryBoxes[country]
	return b, ok
}

// Countries lists the countries with a known bounding box, sorted by name.
func Countries() []string {
	out := make([]string, 0, len(countryBoxes))
	for name := range countryBoxes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
