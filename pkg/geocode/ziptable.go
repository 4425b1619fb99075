package geocode

import "github.com/sells-group/dealflow-cli/internal/model"

// zipTable maps common market ZIP codes to centroid coordinates so the hot
// path never leaves the process. Entries cover the Phoenix metro plus the
// other markets the team operates in; anything absent falls through to the
// external provider.
var zipTable = map[string]model.Coordinates{
	// Phoenix metro
	"85001": {Latitude: 33.4512, Longitude: -112.0766},
	"85003": {Latitude: 33.4512, Longitude: -112.0785},
	"85004": {Latitude: 33.4515, Longitude: -112.0664},
	"85006": {Latitude: 33.4651, Longitude: -112.0470},
	"85008": {Latitude: 33.4624, Longitude: -111.9891},
	"85013": {Latitude: 33.5091, Longitude: -112.0830},
	"85016": {Latitude: 33.5095, Longitude: -112.0294},
	"85018": {Latitude: 33.4977, Longitude: -111.9856},
	"85021": {Latitude: 33.5593, Longitude: -112.0928},
	"85032": {Latitude: 33.6254, Longitude: -112.0036},
	"85040": {Latitude: 33.4058, Longitude: -112.0288},
	"85042": {Latitude: 33.3776, Longitude: -112.0238},
	"85245": {Latitude: 33.6321, Longitude: -112.3535},
	"85251": {Latitude: 33.4933, Longitude: -111.9216},
	"85255": {Latitude: 33.6869, Longitude: -111.8723},
	"85281": {Latitude: 33.4276, Longitude: -111.9305},
	"85301": {Latitude: 33.5319, Longitude: -112.1780},
	"85326": {Latitude: 33.3372, Longitude: -112.5873},

	// Tucson
	"85701": {Latitude: 32.2167, Longitude: -110.9717},
	"85710": {Latitude: 32.2145, Longitude: -110.8252},

	// Las Vegas
	"89101": {Latitude: 36.1729, Longitude: -115.1222},
	"89117": {Latitude: 36.1428, Longitude: -115.2799},

	// Dallas-Fort Worth
	"75201": {Latitude: 32.7876, Longitude: -96.7994},
	"76102": {Latitude: 32.7577, Longitude: -97.3283},

	// Atlanta
	"30303": {Latitude: 33.7525, Longitude: -84.3888},
	"30331": {Latitude: 33.7074, Longitude: -84.5434},

	// Tampa / Orlando
	"33602": {Latitude: 27.9539, Longitude: -82.4575},
	"32801": {Latitude: 28.5421, Longitude: -81.3740},

	// Cleveland / Columbus
	"44102": {Latitude: 41.4744, Longitude: -81.7395},
	"43215": {Latitude: 39.9654, Longitude: -83.0048},
}

// ZipCoordinates returns the static-table coordinates for a ZIP, if present.
func ZipCoordinates(zip string) (model.Coordinates, bool) {
	c, ok := zipTable[zip]
	return c, ok
}
