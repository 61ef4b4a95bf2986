package encode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/udmkit/fishnet/internal/model"
)

func testResult() model.RasterResult {
	spec := model.GridSpec{
		CellSize: 50,
		Origin:   model.Point{X: 100, Y: 200},
		NCols:    2,
		NRows:    2,
	}
	return model.RasterResult{
		Spec:      spec,
		CRS:       "EPSG:27700",
		Threshold: 0.5,
		Cells: []model.ClassifiedCell{
			{Row: 0, Col: 0, Area: 2500, Included: true},
			{Row: 0, Col: 1, Area: 0, Included: false},
			{Row: 1, Col: 0, Area: 900, Included: false},
			{Row: 1, Col: 1, Area: 2500, Included: true},
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"geojson", "GeoJSON", "asciigrid", "png", "PNG"} {
		if _, err := ForFormat(name, 0); err != nil {
			t.Fatalf("ForFormat(%q): %v", name, err)
		}
	}
	if _, err := ForFormat("geotiff", 0); err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestGeoJSON_IncludedCellsOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := (&GeoJSONEncoder{}).Encode(&buf, testResult()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}

	f := fc.Features[0]
	if got := f.Properties.MustInt("row"); got != 0 {
		t.Fatalf("row = %d, want 0", got)
	}
	if got := f.Properties.MustInt("col"); got != 0 {
		t.Fatalf("col = %d, want 0", got)
	}
	b := f.Geometry.Bound()
	if b.Min[0] != 100 || b.Min[1] != 200 || b.Max[0] != 150 || b.Max[1] != 250 {
		t.Fatalf("cell (0,0) bounds = %v", b)
	}
	if got := fc.Features[1].Properties.MustInt("row"); got != 1 {
		t.Fatalf("second feature row = %d, want 1", got)
	}
}

func TestASCIIGrid_LayoutAndHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := (&ASCIIGridEncoder{NoData: 0}).Encode(&buf, testResult()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := "ncols 2\n" +
		"nrows 2\n" +
		"xllcorner 100\n" +
		"yllcorner 200\n" +
		"cellsize 50\n" +
		"NODATA_value 0\n" +
		"0 1\n" + // row 1 is the top of the raster
		"1 0\n"
	if got := buf.String(); got != want {
		t.Fatalf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPNG_DimensionsAndPixels(t *testing.T) {
	var buf bytes.Buffer
	if err := (&PNGEncoder{Scale: 4}).Encode(&buf, testResult()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 8 || h != 8 {
		t.Fatalf("image %dx%d, want 8x8", w, h)
	}

	// cell (0,0) is the bottom-left quadrant of the image
	dark, _, _, _ := img.At(1, 6).RGBA()
	light, _, _, _ := img.At(1, 1).RGBA()
	if dark >= light {
		t.Fatalf("bottom-left cell not darker than excluded cell: %d vs %d", dark, light)
	}
}
