package geo

// Sample is one raw positional reading for a zip prefix. Many samples may
// share a prefix; upstream cleaning guarantees each sample's coordinates are
// individually in range.
type Sample struct {
	ZipPrefix string
	Latitude  float64
	Longitude float64
	City      string
	State     string
}

// Coordinate is the canonical resolved position for a zip prefix.
type Coordinate struct {
	ZipPrefix string
	Latitude  float64
	Longitude float64
	City      string
	State     string
}

// Bounds is the legal latitude/longitude window.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// DefaultBounds covers the full WGS84 range.
var DefaultBounds = Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// Contains reports whether the point is inside the bounds, inclusive.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Resolver aggregates location samples into one coordinate per zip prefix.
type Resolver struct {
	bounds Bounds
}

func NewResolver(bounds Bounds) *Resolver {
	return &Resolver{bounds: bounds}
}

type accumulator struct {
	sumLat, sumLon float64
	count          int
	city, state    string
}

// Resolve averages latitude/longitude over all samples sharing a zip prefix
// and re-checks the averaged point against the bounds; prefixes whose mean
// falls outside are silently absent from the result. City and state come
// from the first sample encountered in input order, which is an explicit
// non-guarantee, not a tie-break rule.
func (r *Resolver) Resolve(samples []Sample) map[string]Coordinate {
	groups := make(map[string]*accumulator)
	for _, s := range samples {
		acc, ok := groups[s.ZipPrefix]
		if !ok {
			acc = &accumulator{city: s.City, state: s.State}
			groups[s.ZipPrefix] = acc
		}
		acc.sumLat += s.Latitude
		acc.sumLon += s.Longitude
		acc.count++
	}

	coords := make(map[string]Coordinate, len(groups))
	for prefix, acc := range groups {
		lat := acc.sumLat / float64(acc.count)
		lon := acc.sumLon / float64(acc.count)
		if !r.bounds.Contains(lat, lon) {
			continue
		}
		coords[prefix] = Coordinate{
			ZipPrefix: prefix,
			Latitude:  lat,
			Longitude: lon,
			City:      acc.city,
			State:     acc.state,
		}
	}
	return coords
}
