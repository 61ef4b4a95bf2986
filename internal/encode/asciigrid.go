package encode

import (
	"bufio"
	"io"
	"strconv"

	"github.com/udmkit/fishnet/internal/model"
)

// ASCIIGridEncoder writes the ESRI ASCII grid format. Included cells carry
// the value 1 and excluded cells the configured NODATA value. Row 0 of the
// grid sits at the origin, which is the bottom of the raster, so rows are
// written top down starting from the highest row index.
type ASCIIGridEncoder struct {
	NoData int
}

func (e *ASCIIGridEncoder) ContentType() string { return "text/plain; charset=utf-8" }

func (e *ASCIIGridEncoder) Encode(w io.Writer, res model.RasterResult) error {
	bw := bufio.NewWriter(w)

	spec := res.Spec
	writeHeader(bw, "ncols", strconv.Itoa(spec.NCols))
	writeHeader(bw, "nrows", strconv.Itoa(spec.NRows))
	writeHeader(bw, "xllcorner", formatCoord(spec.Origin.X))
	writeHeader(bw, "yllcorner", formatCoord(spec.Origin.Y))
	writeHeader(bw, "cellsize", formatCoord(spec.CellSize))
	writeHeader(bw, "NODATA_value", strconv.Itoa(e.NoData))

	nodata := strconv.Itoa(e.NoData)
	for row := spec.NRows - 1; row >= 0; row-- {
		for col := 0; col < spec.NCols; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			if res.At(row, col).Included {
				bw.WriteByte('1')
			} else {
				bw.WriteString(nodata)
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, key, val string) {
	w.WriteString(key)
	w.WriteByte(' ')
	w.WriteString(val)
	w.WriteByte('\n')
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
