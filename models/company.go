package models

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CompanySummary is one search hit, renamed from the Companies House
// search payload into the field names the dashboard uses.
type CompanySummary struct {
	Name           string `json:"name"`
	TitleName      string `json:"titleName"`
	Number         string `json:"number"`
	Status         string `json:"status"`
	Address        string `json:"address"`
	IncorporatedOn string `json:"incorporatedOn"`
}

// CompanyProfile carries the fields the renewal-tracking screens need.
type CompanyProfile struct {
	Name              string `json:"name"`
	TitleName         string `json:"titleName"`
	Number            string `json:"number"`
	Status            string `json:"status"`
	Type              string `json:"type"`
	Address           string `json:"address"`
	IncorporatedOn    string `json:"incorporatedOn"`
	AccountsDueOn     string `json:"accountsDueOn,omitempty"`
	ConfirmationDueOn string `json:"confirmationDueOn,omitempty"`
}

type CompanySearchResponse struct {
	Items []CompanySummary `json:"items"`
}

// TitleCaseName turns the ALL-CAPS registered names Companies House
// returns into display casing ("ACME WIDGETS LTD" -> "Acme Widgets Ltd").
// A fresh Caser per call: Casers are stateful and not safe to share
// across requests.
func TitleCaseName(name string) string {
	return cases.Title(language.BritishEnglish).String(name)
}
