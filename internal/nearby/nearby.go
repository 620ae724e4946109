// Package nearby implements Nearby Search: point and corridor radius
// queries over the R-tree, with on-the-fly type/name filtering via the
// Expander. Grounded on internal/engine/spatial_matcher.go's shape of a
// spatial-candidate pipeline (bounding query, per-candidate distance/score,
// truncate-and-sort), generalized from its PostGIS ST_DWithin/ST_Distance
// calls to the planar local approximation and R-tree box query this index
// actually has on disk.
package nearby

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/geo"
	"github.com/ehdc/geonlp/internal/store"
)

// metersPerLatDegree is the constant meters-per-degree-latitude
// approximation used for the planar projection.
const metersPerLatDegree = 111000.0

// metersPerLonDegree is the latitude-scaled meters-per-degree-longitude
// factor, floored at 1000 so queries near the poles don't collapse to a
// degenerate envelope.
func metersPerLonDegree(latDeg float64) float64 {
	v := math.Pi / 180 * 6378137 * math.Cos(latDeg*math.Pi/180)
	if v < 1000 {
		v = 1000
	}
	return v
}

// Config holds the Nearby Search tunables.
type Config struct {
	MaxResults int
}

// Result is one candidate place with its computed planar distance, in
// meters. For a corridor query Distance is the cumulative along-route
// distance at closest approach.
type Result struct {
	Place    geo.Place
	Distance float64
}

// Searcher runs point and corridor queries against a loaded Reader.
type Searcher struct {
	Store    *store.Reader
	Expander expander.Expander
	Cfg      Config
}

// point is a planar-projected (meters) coordinate.
type point struct{ x, y float64 }

// toPlanar projects (lat, lon) to meters using refLat for the longitude
// scale: x = lat·dLat, y = lon·dLon.
func toPlanar(lat, lon, refLat float64) point {
	return point{x: lat * metersPerLatDegree, y: lon * metersPerLonDegree(refLat)}
}

// segment is one leg of the query polyline (a point query is a
// zero-length segment), carrying the cumulative route distance already
// walked before its start point.
type segment struct {
	aLat, aLon, bLat, bLon float64
	baseDistance           float64
}

// envelope returns the segment's bounding box inflated by radius in
// degrees.
func (s segment) envelope(radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	refLat := s.aLat
	dLatDeg := radiusMeters / metersPerLatDegree
	dLonDeg := radiusMeters / metersPerLonDegree(refLat)
	minLat = math.Min(s.aLat, s.bLat) - dLatDeg
	maxLat = math.Max(s.aLat, s.bLat) + dLatDeg
	minLon = math.Min(s.aLon, s.bLon) - dLonDeg
	maxLon = math.Max(s.aLon, s.bLon) + dLonDeg
	return
}

// closestApproach returns the planar distance from (lat, lon) to the
// segment, via the standard clamped point-to-segment projection, along
// with the along-segment progress fraction t in [0, 1] used to compute
// the cumulative route distance for a corridor query.
func (s segment) closestApproach(lat, lon float64) (distance, t float64) {
	refLat := s.aLat
	a := toPlanar(s.aLat, s.aLon, refLat)
	b := toPlanar(s.bLat, s.bLon, refLat)
	p := toPlanar(lat, lon, refLat)

	dx, dy := b.x-a.x, b.y-a.y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.x-a.x, p.y-a.y), 0
	}

	t = ((p.x-a.x)*dx + (p.y-a.y)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := a.x+t*dx, a.y+t*dy
	return math.Hypot(p.x-cx, p.y-cy), t
}

func (s segment) length() float64 {
	refLat := s.aLat
	a := toPlanar(s.aLat, s.aLon, refLat)
	b := toPlanar(s.bLat, s.bLon, refLat)
	return math.Hypot(b.x-a.x, b.y-a.y)
}

// Point runs a single-point radius query.
func (s *Searcher) Point(ctx context.Context, lat, lon, radius float64, nameVariants, typeVariants []string) ([]Result, error) {
	segs := []segment{{aLat: lat, aLon: lon, bLat: lat, bLon: lon}}
	return s.search(ctx, segs, radius, nameVariants, typeVariants)
}

// Corridor runs a polyline radius query. skipPoints
// downsamples a long polyline by stepping over that many intermediate
// vertices between sampled segment endpoints, bounding the number of
// R-tree queries issued for a dense GPS track.
func (s *Searcher) Corridor(ctx context.Context, lats, lons []float64, radius float64, skipPoints int, nameVariants, typeVariants []string) ([]Result, error) {
	if len(lats) != len(lons) || len(lats) < 2 {
		return nil, nil
	}
	stride := skipPoints + 1
	if stride < 1 {
		stride = 1
	}

	var segs []segment
	cumulative := 0.0
	for i := 0; i+stride < len(lats); i += stride {
		seg := segment{aLat: lats[i], aLon: lons[i], bLat: lats[i+stride], bLon: lons[i+stride], baseDistance: cumulative}
		segs = append(segs, seg)
		cumulative += seg.length()
	}
	return s.search(ctx, segs, radius, nameVariants, typeVariants)
}

// search runs the envelope/candidate/filter/sort pipeline over an ordered
// list of segments, maintaining the processed-box-id set across segments so
// a candidate box is only scored once even if it overlaps more than one
// segment's envelope — corridor mode tracks already-processed box ids
// across segments for exactly this reason.
func (s *Searcher) search(ctx context.Context, segs []segment, radius float64, nameVariants, typeVariants []string) ([]Result, error) {
	processedBoxes := make(map[int32]bool)
	var results []Result

	for _, seg := range segs {
		minLat, maxLat, minLon, maxLon := seg.envelope(radius)
		boxIDs := s.Store.RTreeQuery(minLat, maxLat, minLon, maxLon)

		var newBoxes []int32
		for _, id := range boxIDs {
			if processedBoxes[id] {
				continue
			}
			processedBoxes[id] = true
			newBoxes = append(newBoxes, id)
		}
		if len(newBoxes) == 0 {
			continue
		}

		places, err := s.Store.PlacesInBox(ctx, newBoxes)
		if err != nil {
			return nil, err
		}

		for _, p := range places {
			if len(typeVariants) > 0 && !s.typeMatches(ctx, p, typeVariants) {
				continue
			}

			dist, t := seg.closestApproach(p.Latitude, p.Longitude)
			if dist > radius {
				continue
			}

			if len(nameVariants) > 0 && !s.nameMatches(p, nameVariants) {
				continue
			}

			routeDistance := seg.baseDistance + t*seg.length()
			if seg.aLat == seg.bLat && seg.aLon == seg.bLon {
				routeDistance = dist // point query: distance is just the planar distance
			}

			results = append(results, Result{Place: p, Distance: routeDistance})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })

	if s.Cfg.MaxResults > 0 && len(results) > s.Cfg.MaxResults {
		results = results[:s.Cfg.MaxResults]
	}
	return results, nil
}

// typeMatches reports whether p's type name is one of typeVariants.
func (s *Searcher) typeMatches(ctx context.Context, p geo.Place, typeVariants []string) bool {
	name, ok := s.Store.GetType(ctx, p.TypeID)
	if !ok {
		return false
	}
	for _, v := range typeVariants {
		if name == v {
			return true
		}
	}
	return false
}

// nameMatches expands each of name, name_extra, name_en and accepts if some
// expansion starts with, or contains " " +, one of the supplied name
// variants.
func (s *Searcher) nameMatches(p geo.Place, nameVariants []string) bool {
	for _, candidate := range []string{p.Name, p.NameExtra, p.NameEn} {
		if candidate == "" {
			continue
		}
		expansions, err := s.Expander.Expand(candidate)
		if err != nil {
			continue
		}
		for _, exp := range expansions {
			for _, v := range nameVariants {
				if strings.HasPrefix(exp, v) || strings.Contains(exp, " "+v) {
					return true
				}
			}
		}
	}
	return false
}
