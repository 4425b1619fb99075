package model

import "github.com/rotisserie/eris"

// ErrCoordinatesOutOfRange is returned when a latitude or longitude falls
// outside the valid decimal-degree range.
var ErrCoordinatesOutOfRange = eris.New("model: coordinates out of range")

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the decimal-degree invariant: -90 <= lat <= 90, -180 <= lon <= 180.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrCoordinatesOutOfRange
	}
	return nil
}
