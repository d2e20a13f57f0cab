package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go-backoffice-gateway/models"
)

// Sentinel errors for upstream conditions the handlers map onto the
// response taxonomy.
var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrUpstreamAuth    = errors.New("companies house rejected the api key")
	ErrUpstreamFailure = errors.New("companies house request failed")
)

// CompanyLookupClient defines the Companies House operations the server needs
type CompanyLookupClient interface {
	// SearchCompanies runs a free-text company search
	SearchCompanies(ctx context.Context, query string) ([]models.CompanySummary, error)

	// CompanyProfile fetches the registered profile for a company number
	CompanyProfile(ctx context.Context, number string) (*models.CompanyProfile, error)
}

const DefaultCompaniesHouseURL = "https://api.company-information.service.gov.uk"

// CompaniesHouseClient implements CompanyLookupClient against the public
// Companies House REST API. The API key goes in as HTTP Basic username
// with an empty password.
type CompaniesHouseClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCompaniesHouseClient(baseURL string, apiKey string) *CompaniesHouseClient {
	if baseURL == "" {
		baseURL = DefaultCompaniesHouseURL
	}
	return &CompaniesHouseClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Wire shapes as Companies House sends them. Only the fields the
// dashboard uses are decoded.

type chSearchResult struct {
	Items []struct {
		Title          string `json:"title"`
		CompanyNumber  string `json:"company_number"`
		CompanyStatus  string `json:"company_status"`
		AddressSnippet string `json:"address_snippet"`
		DateOfCreation string `json:"date_of_creation"`
	} `json:"items"`
}

type chCompanyProfile struct {
	CompanyName             string `json:"company_name"`
	CompanyNumber           string `json:"company_number"`
	CompanyStatus           string `json:"company_status"`
	Type                    string `json:"type"`
	DateOfCreation          string `json:"date_of_creation"`
	RegisteredOfficeAddress struct {
		AddressLine1 string `json:"address_line_1"`
		Locality     string `json:"locality"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
	Accounts struct {
		NextDue string `json:"next_due"`
	} `json:"accounts"`
	ConfirmationStatement struct {
		NextDue string `json:"next_due"`
	} `json:"confirmation_statement"`
}

func (c *CompaniesHouseClient) SearchCompanies(ctx context.Context, query string) ([]models.CompanySummary, error) {
	endpoint := fmt.Sprintf("%s/search/companies?q=%s", c.baseURL, url.QueryEscape(query))

	var result chSearchResult
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	summaries := make([]models.CompanySummary, 0, len(result.Items))
	for _, item := range result.Items {
		summaries = append(summaries, models.CompanySummary{
			Name:           item.Title,
			TitleName:      models.TitleCaseName(item.Title),
			Number:         item.CompanyNumber,
			Status:         item.CompanyStatus,
			Address:        item.AddressSnippet,
			IncorporatedOn: item.DateOfCreation,
		})
	}

	slog.Debug("Company search completed", "query", query, "hits", len(summaries))
	return summaries, nil
}

func (c *CompaniesHouseClient) CompanyProfile(ctx context.Context, number string) (*models.CompanyProfile, error) {
	endpoint := fmt.Sprintf("%s/company/%s", c.baseURL, url.PathEscape(number))

	var profile chCompanyProfile
	if err := c.getJSON(ctx, endpoint, &profile); err != nil {
		return nil, err
	}

	address := profile.RegisteredOfficeAddress.AddressLine1
	if profile.RegisteredOfficeAddress.Locality != "" {
		address = fmt.Sprintf("%s, %s", address, profile.RegisteredOfficeAddress.Locality)
	}
	if profile.RegisteredOfficeAddress.PostalCode != "" {
		address = fmt.Sprintf("%s, %s", address, profile.RegisteredOfficeAddress.PostalCode)
	}

	return &models.CompanyProfile{
		Name:              profile.CompanyName,
		TitleName:         models.TitleCaseName(profile.CompanyName),
		Number:            profile.CompanyNumber,
		Status:            profile.CompanyStatus,
		Type:              profile.Type,
		Address:           address,
		IncorporatedOn:    profile.DateOfCreation,
		AccountsDueOn:     profile.Accounts.NextDue,
		ConfirmationDueOn: profile.ConfirmationStatement.NextDue,
	}, nil
}

func (c *CompaniesHouseClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create companies house request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute companies house request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return ErrCompanyNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUpstreamAuth
	default:
		body, _ := io.ReadAll(resp.Body)
		slog.Warn("Companies House returned an unexpected status", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("%w: status %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode companies house response: %w", err)
	}
	return nil
}
