package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func TestParsePropertiesCSV(t *testing.T) {
	input := strings.Join([]string{
		"code,address,city,state,zip,price,beds,baths,sqft",
		"INV-100,1200 W Osborn Rd,Phoenix,AZ,85013,185000,3,2,1450",
		"INV-200, 77 E Weldon Ave ,Phoenix,AZ,85012,415000,4,2.5,2200",
	}, "\n")

	properties, err := parsePropertiesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, properties, 2)

	p := properties[0]
	assert.Equal(t, "INV-100", p.Code)
	assert.Equal(t, "1200 W Osborn Rd", p.Address)
	assert.Equal(t, "Phoenix", p.City)
	assert.Equal(t, "AZ", p.State)
	assert.Equal(t, "85013", p.Zip)
	assert.Equal(t, 185000.0, p.Price)
	assert.Equal(t, 3.0, p.Beds)
	assert.Equal(t, 2.0, p.Baths)
	assert.Equal(t, 1450.0, p.Sqft)
	assert.Equal(t, model.SourceInventory, p.Source, "source defaults to inventory")

	// Surrounding whitespace in cells is trimmed.
	assert.Equal(t, "77 E Weldon Ave", properties[1].Address)
	assert.Equal(t, 2.5, properties[1].Baths)
}

func TestParsePropertiesCSV_ZillowColumns(t *testing.T) {
	input := strings.Join([]string{
		"code,price,source,zpid,source_url,days_on_market",
		"Z-8841,329000,Zillow,8841776,https://www.zillow.com/homedetails/8841776_zpid/,14",
	}, "\n")

	properties, err := parsePropertiesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, properties, 1)

	p := properties[0]
	assert.Equal(t, model.SourceZillow, p.Source)
	assert.Equal(t, "8841776", p.ZPID)
	assert.Equal(t, "https://www.zillow.com/homedetails/8841776_zpid/", p.SourceURL)
	assert.Equal(t, 14, p.DaysOnMarket)
}

func TestParsePropertiesCSV_UnknownColumnsIgnored(t *testing.T) {
	input := strings.Join([]string{
		"code,price,listing_agent,notes",
		"INV-300,250000,Jordan,needs roof work",
	}, "\n")

	properties, err := parsePropertiesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "INV-300", properties[0].Code)
	assert.Equal(t, 250000.0, properties[0].Price)
}

func TestParsePropertiesCSV_MissingCodeColumn(t *testing.T) {
	input := "address,city,price\n123 Main St,Phoenix,185000\n"

	_, err := parsePropertiesCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column: code")
}

func TestParsePropertiesCSV_EmptyCode(t *testing.T) {
	input := strings.Join([]string{
		"code,price",
		"INV-100,185000",
		",250000",
	}, "\n")

	_, err := parsePropertiesCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParsePropertiesCSV_MalformedRow(t *testing.T) {
	input := "code,price\n\"INV-100,185000\n"

	_, err := parsePropertiesCSV(strings.NewReader(input))
	require.Error(t, err)
}
