package model

// BuyerCriteria is a buyer's search profile, built from an external contact
// record. It is immutable for the duration of one matching run.
type BuyerCriteria struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`

	DesiredBeds  float64 `json:"desired_beds,omitempty"`
	DesiredBaths float64 `json:"desired_baths,omitempty"`

	DownPayment        float64 `json:"down_payment,omitempty"`
	MonthlyIncome      float64 `json:"monthly_income,omitempty"`
	MonthlyLiabilities float64 `json:"monthly_liabilities,omitempty"`

	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	Location      string   `json:"location,omitempty"` // free-text location when city/state are absent
	PreferredZips []string `json:"preferred_zips,omitempty"`

	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// SearchLocation returns the best available location string for geocoding:
// the first preferred ZIP, then city/state, then the free-text location.
func (b BuyerCriteria) SearchLocation() string {
	if len(b.PreferredZips) > 0 {
		return b.PreferredZips[0]
	}
	if b.City != "" && b.State != "" {
		return b.City + ", " + b.State
	}
	return b.Location
}

// PrefersZip reports whether zip is in the buyer's preferred-ZIP set.
func (b BuyerCriteria) PrefersZip(zip string) bool {
	for _, z := range b.PreferredZips {
		if z == zip {
			return true
		}
	}
	return false
}
