package crm

import (
	"context"
	"strings"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// contactRecord mirrors the buyer fields on the Contact SObject.
type contactRecord struct {
	Id                 string  `json:"Id"`
	Name               string  `json:"Name"`
	Email              string  `json:"Email"`
	DesiredBeds        float64 `json:"Desired_Beds__c"`
	DesiredBaths       float64 `json:"Desired_Baths__c"`
	DownPayment        float64 `json:"Down_Payment__c"`
	MonthlyIncome      float64 `json:"Monthly_Income__c"`
	MonthlyLiabilities float64 `json:"Monthly_Liabilities__c"`
	MailingCity        string  `json:"MailingCity"`
	MailingState       string  `json:"MailingState"`
	PreferredLocation  string  `json:"Preferred_Location__c"`
	PreferredZips      string  `json:"Preferred_Zips__c"` // semicolon-separated multipicklist
}

type contactQueryResult struct {
	Records []contactRecord
}

const buyerContactSOQL = `SELECT Id, Name, Email, Desired_Beds__c, Desired_Baths__c,
	Down_Payment__c, Monthly_Income__c, Monthly_Liabilities__c,
	MailingCity, MailingState, Preferred_Location__c, Preferred_Zips__c
	FROM Contact WHERE Active_Buyer__c = true`

// FetchBuyers queries active buyer contacts and converts them into buyer
// search profiles.
func FetchBuyers(ctx context.Context, client Client) ([]model.BuyerCriteria, error) {
	var result contactQueryResult
	if err := client.Query(ctx, buyerContactSOQL, &result); err != nil {
		return nil, err
	}

	buyers := make([]model.BuyerCriteria, 0, len(result.Records))
	for _, c := range result.Records {
		buyers = append(buyers, buyerFromContact(c))
	}
	return buyers, nil
}

func buyerFromContact(c contactRecord) model.BuyerCriteria {
	b := model.BuyerCriteria{
		ContactID:          c.Id,
		Name:               c.Name,
		Email:              c.Email,
		DesiredBeds:        c.DesiredBeds,
		DesiredBaths:       c.DesiredBaths,
		DownPayment:        c.DownPayment,
		MonthlyIncome:      c.MonthlyIncome,
		MonthlyLiabilities: c.MonthlyLiabilities,
		City:               c.MailingCity,
		State:              c.MailingState,
		Location:           c.PreferredLocation,
	}
	for _, zip := range strings.Split(c.PreferredZips, ";") {
		zip = strings.TrimSpace(zip)
		if zip != "" {
			b.PreferredZips = append(b.PreferredZips, zip)
		}
	}
	return b
}
