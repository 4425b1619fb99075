package model

// PropertySource tags where a property record came from.
type PropertySource string

const (
	SourceInventory PropertySource = "inventory"
	SourceLead      PropertySource = "lead"
	SourceZillow    PropertySource = "zillow"
)

// PropertyDetails holds a property's searchable attributes.
type PropertyDetails struct {
	Code    string `json:"code"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`

	Price float64 `json:"price"`
	Beds  float64 `json:"beds"`
	Baths float64 `json:"baths"`
	Sqft  float64 `json:"sqft,omitempty"`

	Coordinates *Coordinates   `json:"coordinates,omitempty"`
	Source      PropertySource `json:"source"`

	// Zillow-sourced fields, populated only when Source is zillow.
	ZPID         string `json:"zpid,omitempty"`
	DaysOnMarket int    `json:"days_on_market,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
}

// SearchLocation returns the best available location string for geocoding:
// ZIP first, then the street address with city/state.
func (p PropertyDetails) SearchLocation() string {
	if p.Zip != "" {
		return p.Zip
	}
	loc := p.Address
	if p.City != "" {
		loc += ", " + p.City
	}
	if p.State != "" {
		loc += ", " + p.State
	}
	return loc
}
