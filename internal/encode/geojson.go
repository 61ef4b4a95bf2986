package encode

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/udmkit/fishnet/internal/model"
)

// GeoJSONEncoder emits a FeatureCollection with one rectangular feature per
// included cell. Cell rectangles are rebuilt from the grid spec, so the
// output is exact regardless of how the cells were classified.
type GeoJSONEncoder struct{}

func (e *GeoJSONEncoder) ContentType() string { return "application/geo+json" }

func (e *GeoJSONEncoder) Encode(w io.Writer, res model.RasterResult) error {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = map[string]interface{}{"crs_name": res.CRS}
	for _, c := range res.Cells {
		if !c.Included {
			continue
		}
		f := geojson.NewFeature(cellPolygon(res.Spec, c.Row, c.Col))
		f.Properties = geojson.Properties{
			"row":      c.Row,
			"col":      c.Col,
			"area":     c.Area,
			"coverage": c.Area / res.Spec.CellArea(),
		}
		fc.Append(f)
	}
	return json.NewEncoder(w).Encode(fc)
}

func cellPolygon(spec model.GridSpec, row, col int) orb.Polygon {
	b := spec.CellBound(row, col)
	return orb.Polygon{orb.Ring{
		{b.Min.X, b.Min.Y},
		{b.Max.X, b.Min.Y},
		{b.Max.X, b.Max.Y},
		{b.Min.X, b.Max.Y},
		{b.Min.X, b.Min.Y},
	}}
}
