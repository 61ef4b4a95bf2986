// Package encode serialises classification results into the supported
// output formats.
package encode

import (
	"fmt"
	"io"
	"strings"

	"github.com/udmkit/fishnet/internal/model"
)

const (
	FormatGeoJSON   = "geojson"
	FormatASCIIGrid = "asciigrid"
	FormatPNG       = "png"
)

// Encoder writes one RasterResult to a stream.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, res model.RasterResult) error
}

// ForFormat returns the encoder for a format name. The nodata value is
// written for excluded cells in raster formats; vector output carries only
// included cells and ignores it.
func ForFormat(format string, nodata int) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatGeoJSON:
		return &GeoJSONEncoder{}, nil
	case FormatASCIIGrid:
		return &ASCIIGridEncoder{NoData: nodata}, nil
	case FormatPNG:
		return &PNGEncoder{Scale: 0}, nil
	default:
		return nil, fmt.Errorf("encode: unknown format %q", format)
	}
}
