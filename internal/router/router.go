package router

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/udmkit/fishnet/internal/config"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/pipeline"
)

const maxFeatureBody = 64 << 20

// validates user input for /rasterise and returns a normalized run request
func ParseRunRequest(r *http.Request, cfg config.Config) (pipeline.Request, error) {
	q := r.URL.Query()

	spec := model.RegionSpec{CRS: cfg.CRS}
	if crs := strings.TrimSpace(q.Get("crs")); crs != "" {
		spec.CRS = crs
	}

	rawBBox := strings.TrimSpace(q.Get("bbox"))
	rawCodes := strings.TrimSpace(q.Get("lads"))
	if rawBBox == "" && rawCodes == "" {
		return pipeline.Request{}, errors.New("missing region: supply bbox or lads")
	}
	if rawBBox != "" {
		bb, err := parseBBox(rawBBox)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid bbox: %w", err)
		}
		spec.BBox = &bb
	}
	if rawCodes != "" {
		for _, c := range strings.Split(rawCodes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				spec.AreaCodes = append(spec.AreaCodes, c)
			}
		}
	}

	cellSize, err := parseFloat(q.Get("cellsize"))
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("invalid cellsize: %w", err)
	}

	threshold := 0.5
	if v := strings.TrimSpace(q.Get("threshold")); v != "" {
		if threshold, err = parseFloat(v); err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid threshold: %w", err)
		}
	}

	invert := false
	if v := strings.TrimSpace(q.Get("invert")); v != "" {
		if invert, err = strconv.ParseBool(v); err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid invert: %w", err)
		}
	}

	format := "geojson"
	if v := strings.TrimSpace(q.Get("format")); v != "" {
		format = v
	}

	nodata := 0
	if v := strings.TrimSpace(q.Get("nodata")); v != "" {
		if nodata, err = strconv.Atoi(v); err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid nodata: %w", err)
		}
	}

	workers := 0
	if v := strings.TrimSpace(q.Get("workers")); v != "" {
		if workers, err = strconv.Atoi(v); err != nil || workers < 0 {
			return pipeline.Request{}, fmt.Errorf("invalid workers: %q", v)
		}
	}

	var body []byte
	if r.Method == http.MethodPost && r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxFeatureBody))
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("read feature body: %w", err)
		}
	}

	return pipeline.Request{
		Region: spec,
		Params: config.RunParams{
			CellSize:  cellSize,
			Threshold: threshold,
			Invert:    invert,
			Format:    format,
			NoData:    nodata,
		},
		Workers:     workers,
		FeatureData: body,
	}, nil
}

func parseBBox(raw string) (model.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.Bound{}, errors.New("expected 4 comma-separated values: minx,miny,maxx,maxy")
	}
	vals := make([]float64, 4)
	for i, name := range []string{"minx", "miny", "maxx", "maxy"} {
		v, err := parseFloat(parts[i])
		if err != nil {
			return model.Bound{}, fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}
	return model.Bound{
		Min: model.Point{X: vals[0], Y: vals[1]},
		Max: model.Point{X: vals[2], Y: vals[3]},
	}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}
