package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuyerCriteria_SearchLocation(t *testing.T) {
	tests := []struct {
		name  string
		buyer BuyerCriteria
		want  string
	}{
		{
			name:  "preferred zip wins",
			buyer: BuyerCriteria{PreferredZips: []string{"85013", "85012"}, City: "Phoenix", State: "AZ"},
			want:  "85013",
		},
		{
			name:  "city and state",
			buyer: BuyerCriteria{City: "Phoenix", State: "AZ", Location: "somewhere"},
			want:  "Phoenix, AZ",
		},
		{
			name:  "city without state falls through to free text",
			buyer: BuyerCriteria{City: "Phoenix", Location: "north Phoenix"},
			want:  "north Phoenix",
		},
		{
			name:  "nothing available",
			buyer: BuyerCriteria{},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.buyer.SearchLocation())
		})
	}
}

func TestBuyerCriteria_PrefersZip(t *testing.T) {
	b := BuyerCriteria{PreferredZips: []string{"85013", "85012"}}
	assert.True(t, b.PrefersZip("85012"))
	assert.False(t, b.PrefersZip("85251"))
	assert.False(t, BuyerCriteria{}.PrefersZip("85013"))
}

func TestPropertyDetails_SearchLocation(t *testing.T) {
	p := PropertyDetails{Address: "1200 W Osborn Rd", City: "Phoenix", State: "AZ", Zip: "85013"}
	assert.Equal(t, "85013", p.SearchLocation())

	p.Zip = ""
	assert.Equal(t, "1200 W Osborn Rd, Phoenix, AZ", p.SearchLocation())
}

func TestCoordinates_Validate(t *testing.T) {
	assert.NoError(t, Coordinates{Latitude: 33.45, Longitude: -112.07}.Validate())
	assert.ErrorIs(t, Coordinates{Latitude: 91, Longitude: 0}.Validate(), ErrCoordinatesOutOfRange)
	assert.ErrorIs(t, Coordinates{Latitude: 0, Longitude: -181}.Validate(), ErrCoordinatesOutOfRange)
}
