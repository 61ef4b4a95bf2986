package encode

import (
	"io"

	"github.com/fogleman/gg"

	"github.com/udmkit/fishnet/internal/model"
)

// PNGEncoder renders a quick-look image of the classification. Included
// cells are drawn dark on a light background with row 0 at the bottom.
// Scale is the pixel size of one cell; zero picks a size that keeps the
// longest image edge near 1024 pixels.
type PNGEncoder struct {
	Scale int
}

func (e *PNGEncoder) ContentType() string { return "image/png" }

func (e *PNGEncoder) Encode(w io.Writer, res model.RasterResult) error {
	spec := res.Spec
	scale := e.Scale
	if scale <= 0 {
		scale = autoScale(spec.NCols, spec.NRows)
	}

	dc := gg.NewContext(spec.NCols*scale, spec.NRows*scale)
	dc.SetRGB(0.96, 0.96, 0.94)
	dc.Clear()

	dc.SetRGB(0.13, 0.24, 0.42)
	for _, c := range res.Cells {
		if !c.Included {
			continue
		}
		x := float64(c.Col * scale)
		y := float64((spec.NRows - 1 - c.Row) * scale)
		dc.DrawRectangle(x, y, float64(scale), float64(scale))
	}
	dc.Fill()

	return dc.EncodePNG(w)
}

func autoScale(ncols, nrows int) int {
	longest := ncols
	if nrows > longest {
		longest = nrows
	}
	if longest >= 1024 {
		return 1
	}
	return 1024 / longest
}
