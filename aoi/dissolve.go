package aoi

import (
	"errors"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/venicegeo/geojson-go/geojson"
)

// dissolve unions every record into one Polygon or MultiPolygon. Within a
// record, rings are filled by the even-odd rule, so a ring nested in another
// is a hole whatever its winding. Output rings follow RFC 7946: outer
// counter-clockwise, holes clockwise.
func dissolve(records [][][][]float64) (interface{}, error) {
	var shapes []geom.Geometry
	for i, rings := range records {
		shape, err := recordShape(rings)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if !shape.IsEmpty() {
			shapes = append(shapes, shape)
		}
	}
	if len(shapes) == 0 {
		return nil, errors.New("no polygon rings found")
	}
	union, err := geom.UnionMany(shapes)
	if err != nil {
		return nil, fmt.Errorf("dissolve: %w", err)
	}
	return toGeoJSON(union.ForceCCW())
}

func recordShape(rings [][][]float64) (geom.Geometry, error) {
	var shape geom.Geometry
	for _, ring := range rings {
		ring = closeRing(ring)
		if len(ring) < 4 || signedArea(ring) == 0 {
			continue
		}
		poly := geom.NewPolygon([]geom.LineString{geom.NewLineString(sequence(ring))})
		if err := poly.Validate(); err != nil {
			return geom.Geometry{}, err
		}
		if shape.IsEmpty() {
			shape = poly.AsGeometry()
			continue
		}
		var err error
		if shape, err = geom.SymmetricDifference(shape, poly.AsGeometry()); err != nil {
			return geom.Geometry{}, err
		}
	}
	return shape, nil
}

func sequence(ring [][]float64) geom.Sequence {
	flat := make([]float64, 0, 2*len(ring))
	for _, pt := range ring {
		flat = append(flat, pt[0], pt[1])
	}
	return geom.NewSequence(flat, geom.DimXY)
}

func toGeoJSON(g geom.Geometry) (interface{}, error) {
	switch g.Type() {
	case geom.TypePolygon:
		return geojson.NewPolygon(polygonCoordinates(g.MustAsPolygon())), nil
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		polygons := make([][][][]float64, mp.NumPolygons())
		for i := range polygons {
			polygons[i] = polygonCoordinates(mp.PolygonN(i))
		}
		return geojson.NewMultiPolygon(polygons), nil
	default:
		return nil, fmt.Errorf("dissolve produced a %s", g.Type())
	}
}

func polygonCoordinates(p geom.Polygon) [][][]float64 {
	var rings [][][]float64
	for _, seq := range p.Coordinates() {
		ring := make([][]float64, seq.Length())
		for i := range ring {
			xy := seq.GetXY(i)
			ring[i] = []float64{xy.X, xy.Y}
		}
		rings = append(rings, ring)
	}
	return rings
}

func closeRing(ring [][]float64) [][]float64 {
	if len(ring) == 0 {
		return ring
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(ring, []float64{first[0], first[1]})
	}
	return ring
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring [][]float64) float64 {
	sum := 0.0
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
