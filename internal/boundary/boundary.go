// Package boundary implements the importer's `--poly FILE` GeoJSON filter:
// rows whose coordinates fall
// outside the supplied polygon are skipped during ingestion. Adapted from
// datacommonsorg-mixer's internal/server/recon/coordinate.go, which parses a
// GeoJSON Polygon/MultiPolygon into an s2.Polygon and tests point
// containment the same way; generalized here from a recon-cache lookup
// into a standalone file-backed boundary filter for the import CLI.
package boundary

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/geo/s2"
)

// polygonGeoJSON mirrors the relevant subset of RFC 7946: only Polygon and
// MultiPolygon geometries are supported, matching what original_source's
// importer accepts for --poly.
type polygonGeoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Features    []struct {
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Boundary wraps a parsed GeoJSON polygon and answers containment queries.
type Boundary struct {
	polygon *s2.Polygon
}

// Load reads and parses a GeoJSON boundary file. It accepts a bare
// Polygon/MultiPolygon geometry or a FeatureCollection with exactly one
// feature, the two shapes original_source's boundary files use in practice.
func Load(path string) (*Boundary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: open %s: %w", path, err)
	}

	var g polygonGeoJSON
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("boundary: parse %s: %w", path, err)
	}

	geomType, coords := g.Type, g.Coordinates
	if geomType == "FeatureCollection" {
		if len(g.Features) != 1 {
			return nil, fmt.Errorf("boundary: %s: expected exactly one feature, got %d", path, len(g.Features))
		}
		geomType = g.Features[0].Geometry.Type
		coords = g.Features[0].Geometry.Coordinates
	}

	polygon, err := parseGeometry(geomType, coords)
	if err != nil {
		return nil, fmt.Errorf("boundary: %s: %w", path, err)
	}
	return &Boundary{polygon: polygon}, nil
}

func parseGeometry(geomType string, coords json.RawMessage) (*s2.Polygon, error) {
	switch geomType {
	case "Polygon":
		var loops [][][]float64
		if err := json.Unmarshal(coords, &loops); err != nil {
			return nil, err
		}
		s2Loops, err := buildLoops(loops)
		if err != nil {
			return nil, err
		}
		return s2.PolygonFromOrientedLoops(s2Loops), nil
	case "MultiPolygon":
		var polygons [][][][]float64
		if err := json.Unmarshal(coords, &polygons); err != nil {
			return nil, err
		}
		var s2Loops []*s2.Loop
		for _, polygon := range polygons {
			loops, err := buildLoops(polygon)
			if err != nil {
				return nil, err
			}
			s2Loops = append(s2Loops, loops...)
		}
		return s2.PolygonFromOrientedLoops(s2Loops), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geomType)
	}
}

// buildLoops converts GeoJSON ring coordinates ([lon, lat] pairs, first
// point repeated as last) into s2.Loops, dropping the closing duplicate
// point and normalizing the shell (first ring) to counter-clockwise so S2's
// interior-on-the-left convention matches GeoJSON's right-hand rule.
func buildLoops(loops [][][]float64) ([]*s2.Loop, error) {
	res := make([]*s2.Loop, 0, len(loops))
	for i, loop := range loops {
		if len(loop) < 4 {
			return nil, fmt.Errorf("geoJSON ring needs >= 4 points, got %d", len(loop))
		}

		points := make([]s2.Point, 0, len(loop)-1)
		for _, pt := range loop[:len(loop)-1] {
			if len(pt) != 2 {
				return nil, fmt.Errorf("malformed coordinate pair: %v", pt)
			}
			points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(pt[1], pt[0])))
		}

		l := s2.LoopFromPoints(points)
		if i == 0 {
			l.Normalize()
		}
		res = append(res, l)
	}
	return res, nil
}

// Contains reports whether (lat, lon) falls inside the boundary.
func (b *Boundary) Contains(lat, lon float64) bool {
	if b == nil || b.polygon == nil {
		return true
	}
	point := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	return b.polygon.ContainsPoint(point)
}
