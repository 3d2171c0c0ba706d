package aoi

import (
	"errors"
	"fmt"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/venicegeo/geojson-go/geojson"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

// GeometryError reports an AOI that could not be turned into a request geometry.
// The AOI is skipped; other AOIs are unaffected.
type GeometryError struct {
	Path string
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("load AOI %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GeometryError) Unwrap() error {
	return e.Err
}

// Load reads every polygon of the shapefile at path, reprojects it to
// EPSG:4326 and dissolves it into a single-feature FeatureCollection.
func Load(ctx util.LogContext, path string) (*model.AreaOfInterest, error) {
	proj, err := readProjection(ctx, path)
	if err != nil {
		return nil, &GeometryError{Path: path, Err: err}
	}
	records, err := readRecords(path, proj)
	if err != nil {
		return nil, &GeometryError{Path: path, Err: err}
	}
	geometry, err := dissolve(records)
	if err != nil {
		return nil, &GeometryError{Path: path, Err: err}
	}

	name := Name(path)
	feature := geojson.NewFeature(geometry, name, map[string]interface{}{})
	return &model.AreaOfInterest{
		Name:     name,
		Source:   path,
		Geometry: geojson.NewFeatureCollection([]*geojson.Feature{feature}),
	}, nil
}

func readProjection(ctx util.LogContext, path string) (Projection, error) {
	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	data, err := os.ReadFile(prj)
	if errors.Is(err, os.ErrNotExist) {
		util.LogAlert(ctx, fmt.Sprintf("No .prj next to %s, assuming EPSG:4326", path))
		return WGS84, nil
	}
	if err != nil {
		return nil, err
	}
	return ParsePRJ(string(data))
}

// readRecords returns the rings of every polygon record, reprojected.
func readRecords(path string, proj Projection) ([][][][]float64, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var records [][][][]float64
	for reader.Next() {
		index, shape := reader.Shape()
		var (
			parts  []int32
			points []shp.Point
		)
		switch s := shape.(type) {
		case *shp.Polygon:
			parts, points = s.Parts, s.Points
		case *shp.PolygonZ:
			parts, points = s.Parts, s.Points
		case *shp.PolygonM:
			parts, points = s.Parts, s.Points
		case *shp.Null:
			continue
		default:
			return nil, fmt.Errorf("record %d: expected polygons, found %T", index, shape)
		}
		var rings [][][]float64
		for i, start := range parts {
			end := int32(len(points))
			if i+1 < len(parts) {
				end = parts[i+1]
			}
			if start < 0 || start > end || int(end) > len(points) {
				return nil, fmt.Errorf("record %d: corrupt part index", index)
			}
			ring := make([][]float64, 0, end-start)
			for _, pt := range points[start:end] {
				lon, lat := proj.Inverse(pt.X, pt.Y)
				ring = append(ring, []float64{lon, lat})
			}
			rings = append(rings, ring)
		}
		records = append(records, rings)
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
