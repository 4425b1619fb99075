package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// encodeCoordinates converts lat/lon coordinates to EWKB point bytes with
// SRID 4326. EWKB stores longitude first. Returns nil, nil for nil coords.
func encodeCoordinates(coords *model.Coordinates) ([]byte, error) {
	if coords == nil {
		return nil, nil
	}

	pt := geom.NewPointFlat(geom.XY, []float64{coords.Longitude, coords.Latitude}).SetSRID(4326)

	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode coordinates")
	}
	return data, nil
}

// decodeCoordinates parses EWKB point bytes back into coordinates.
// Returns nil, nil for empty input.
func decodeCoordinates(data []byte) (*model.Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}

	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode coordinates")
	}

	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("store: expected point geometry, got %T", g)
	}

	return &model.Coordinates{
		Latitude:  pt.Y(),
		Longitude: pt.X(),
	}, nil
}
