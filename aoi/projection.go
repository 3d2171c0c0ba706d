package aoi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/wroge/wgs84"
)

// ErrUnsupportedProjection is returned for .prj definitions no Projection is available for.
var ErrUnsupportedProjection = errors.New("unsupported projection")

// Projection converts native shapefile coordinates to EPSG:4326 longitude/latitude.
type Projection interface {
	Inverse(x, y float64) (lon, lat float64)
	Name() string
}

// ParsePRJ builds the Projection described by an ESRI or OGC WKT definition.
// Transverse Mercator, Albers, Lambert conformal conic, Lambert azimuthal
// equal area and Web Mercator are supported, with TOWGS84 datum shifts.
func ParsePRJ(wkt string) (Projection, error) {
	root, err := parseWKT(wkt)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(root.name) {
	case "GEOGCS":
		datum, err := datumOf(root)
		if err != nil {
			return nil, err
		}
		return &crsProjection{
			name:  root.str(0),
			toLL:  wgs84.Transform(datum.LonLat(), wgs84.LonLat()),
			scale: angularUnit(root),
		}, nil
	case "PROJCS":
		return projected(root)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProjection, root.name)
	}
}

// WGS84 is used when a shapefile comes without a .prj.
var WGS84 Projection = &crsProjection{
	name:  "GCS_WGS_1984",
	toLL:  func(lon, lat, h float64) (float64, float64, float64) { return lon, lat, h },
	scale: 1,
}

// crsProjection scales native units, removes any offsets the library
// projection does not model, then transforms to WGS84 longitude/latitude.
type crsProjection struct {
	name             string
	toLL             wgs84.Func
	scale            float64
	offsetX, offsetY float64
	lon0             float64
}

func (p *crsProjection) Name() string { return p.name }

func (p *crsProjection) Inverse(x, y float64) (float64, float64) {
	lon, lat, _ := p.toLL(x*p.scale-p.offsetX, y*p.scale-p.offsetY, 0)
	return normalizeLon(lon + p.lon0), lat
}

func normalizeLon(lon float64) float64 {
	if lon > 180 || lon < -180 {
		lon = math.Mod(lon+540, 360) - 180
	}
	return lon
}

// datumOf reads the spheroid and TOWGS84 shift of the GEOGCS at or under node.
func datumOf(node *wktNode) (wgs84.Datum, error) {
	gcs := node
	if !strings.EqualFold(node.name, "GEOGCS") {
		gcs = node.child("GEOGCS")
	}
	a, invF := float64(wgs84.A), float64(wgs84.Fi)
	var shift [7]float64
	if gcs != nil {
		if datum := gcs.child("DATUM"); datum != nil {
			if sph := datum.child("SPHEROID"); sph != nil {
				a, invF = sph.num(1), sph.num(2)
			}
			if to := datum.child("TOWGS84"); to != nil {
				for i := range shift {
					shift[i] = to.num(i)
				}
			}
		}
	}
	if a <= 0 || invF <= 0 {
		return wgs84.Datum{}, fmt.Errorf("%w: spheroid %v, %v", ErrUnsupportedProjection, a, invF)
	}
	return wgs84.Helmert(a, invF, shift[0], shift[1], shift[2], shift[3], shift[4], shift[5], shift[6]), nil
}

func projected(root *wktNode) (Projection, error) {
	name := root.str(0)
	method := ""
	if p := root.child("PROJECTION"); p != nil {
		method = strings.ToLower(p.str(0))
	}
	toMeters := 1.0
	if unit := root.child("UNIT"); unit != nil && unit.num(1) > 0 {
		toMeters = unit.num(1)
	}
	params := root.parameters()
	lon0 := params.get(0, "central_meridian", "longitude_of_origin", "longitude_of_center")
	lat0 := params.get(0, "latitude_of_origin", "latitude_of_center")
	fe := params.get(0, "false_easting") * toMeters
	fn := params.get(0, "false_northing") * toMeters

	if isWebMercator(method) {
		return &crsProjection{
			name:    name,
			toLL:    wgs84.From(wgs84.WebMercator()),
			scale:   toMeters,
			offsetX: fe,
			offsetY: fn,
			lon0:    lon0,
		}, nil
	}

	datum, err := datumOf(root)
	if err != nil {
		return nil, err
	}
	var crs wgs84.ProjectedReferenceSystem
	switch method {
	case "transverse_mercator", "gauss_kruger":
		crs = datum.TransverseMercator(lon0, lat0, params.get(1, "scale_factor"), fe, fn)
	case "albers", "albers_conic_equal_area":
		sp1 := params.get(lat0, "standard_parallel_1")
		crs = datum.AlbersEqualAreaConic(lon0, lat0, sp1, params.get(sp1, "standard_parallel_2"), fe, fn)
	case "lambert_conformal_conic", "lambert_conformal_conic_2sp", "lambert_conformal_conic_1sp":
		if k := params.get(1, "scale_factor"); k != 1 {
			return nil, fmt.Errorf("%w: %q with scale factor %v in %s", ErrUnsupportedProjection, method, k, name)
		}
		sp1 := params.get(lat0, "standard_parallel_1")
		crs = datum.LambertConformalConic2SP(lon0, lat0, sp1, params.get(sp1, "standard_parallel_2"), fe, fn)
	case "lambert_azimuthal_equal_area":
		crs = datum.LambertAzimuthalEqualArea(lon0, lat0, fe, fn)
	default:
		return nil, fmt.Errorf("%w: %q in %s", ErrUnsupportedProjection, method, name)
	}
	return &crsProjection{
		name:  name,
		toLL:  wgs84.Transform(crs, wgs84.LonLat()),
		scale: toMeters,
	}, nil
}

func isWebMercator(method string) bool {
	switch method {
	case "mercator_auxiliary_sphere", "popular_visualisation_pseudo_mercator", "pseudo_mercator":
		return true
	}
	return false
}

func angularUnit(gcs *wktNode) float64 {
	if unit := gcs.child("UNIT"); unit != nil {
		if rad := unit.num(1); rad > 0 {
			return rad * 180 / math.Pi
		}
	}
	return 1
}

// wktNode is KEYWORD[arg, ...] where each arg is a string, a number or a nested node.
type wktNode struct {
	name string
	args []interface{}
}

func (n *wktNode) child(name string) *wktNode {
	for _, arg := range n.args {
		if c, ok := arg.(*wktNode); ok && strings.EqualFold(c.name, name) {
			return c
		}
	}
	return nil
}

func (n *wktNode) str(i int) string {
	if i < len(n.args) {
		if s, ok := n.args[i].(string); ok {
			return s
		}
	}
	return ""
}

func (n *wktNode) num(i int) float64 {
	if i < len(n.args) {
		if f, ok := n.args[i].(float64); ok {
			return f
		}
	}
	return 0
}

type wktParams map[string]float64

func (n *wktNode) parameters() wktParams {
	params := wktParams{}
	for _, arg := range n.args {
		if c, ok := arg.(*wktNode); ok && strings.EqualFold(c.name, "PARAMETER") {
			params[strings.ToLower(c.str(0))] = c.num(1)
		}
	}
	return params
}

// get returns the first parameter present among names, or def.
func (p wktParams) get(def float64, names ...string) float64 {
	for _, name := range names {
		if v, ok := p[name]; ok {
			return v
		}
	}
	return def
}

func parseWKT(text string) (*wktNode, error) {
	p := &wktParser{src: strings.TrimSpace(text)}
	node, err := p.node()
	if err == errBareKeyword {
		return nil, fmt.Errorf("parse projection: expected '[' after %q", p.src[:p.pos])
	}
	if err != nil {
		return nil, fmt.Errorf("parse projection: %w", err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("parse projection: trailing data at offset %d", p.pos)
	}
	return node, nil
}

var errBareKeyword = errors.New("keyword without arguments")

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) node() (*wktNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsLetter(rune(p.src[p.pos])) || unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '_') {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("expected keyword at offset %d", p.pos)
	}
	node := &wktNode{name: p.src[start:p.pos]}
	end := p.pos
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		// enumerations such as AXIS["Easting",EAST]
		p.pos = end
		return nil, errBareKeyword
	}
	closing := byte(']')
	if p.src[p.pos] == '(' {
		closing = ')'
	}
	p.pos++

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated %s", node.name)
		}
		switch c := p.src[p.pos]; {
		case c == closing:
			p.pos++
			return node, nil
		case c == ',':
			p.pos++
		case c == '"':
			end := strings.IndexByte(p.src[p.pos+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at offset %d", p.pos)
			}
			node.args = append(node.args, p.src[p.pos+1:p.pos+1+end])
			p.pos += end + 2
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			start := p.pos
			for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE", p.src[p.pos]) >= 0 {
				p.pos++
			}
			f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", p.src[start:p.pos])
			}
			node.args = append(node.args, f)
		default:
			start := p.pos
			child, err := p.node()
			if err == errBareKeyword {
				node.args = append(node.args, p.src[start:p.pos])
				continue
			}
			if err != nil {
				return nil, err
			}
			node.args = append(node.args, child)
		}
	}
}
