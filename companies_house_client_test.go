package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-backoffice-gateway/models"

	"github.com/stretchr/testify/require"
)

func newCompaniesHouseTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *CompaniesHouseClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewCompaniesHouseClient(srv.URL, "test-api-key")
}

func TestSearchCompanies_RenamesFields(t *testing.T) {
	_, client := newCompaniesHouseTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/companies", r.URL.Path)
		require.Equal(t, "acme widgets", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
			"title": "ACME WIDGETS LTD",
			"company_number": "01234567",
			"company_status": "active",
			"address_snippet": "1 High Street, London, EC1A 1AA",
			"date_of_creation": "2015-06-01"
		}]}`))
	})

	summaries, err := client.SearchCompanies(context.Background(), "acme widgets")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	require.Equal(t, models.CompanySummary{
		Name:           "ACME WIDGETS LTD",
		TitleName:      "Acme Widgets Ltd",
		Number:         "01234567",
		Status:         "active",
		Address:        "1 High Street, London, EC1A 1AA",
		IncorporatedOn: "2015-06-01",
	}, summaries[0])
}

func TestCompanyProfile_RenamesFields(t *testing.T) {
	_, client := newCompaniesHouseTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/company/01234567", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"company_name": "ACME WIDGETS LTD",
			"company_number": "01234567",
			"company_status": "active",
			"type": "ltd",
			"date_of_creation": "2015-06-01",
			"registered_office_address": {
				"address_line_1": "1 High Street",
				"locality": "London",
				"postal_code": "EC1A 1AA"
			},
			"accounts": {"next_due": "2026-03-31"},
			"confirmation_statement": {"next_due": "2026-06-15"}
		}`))
	})

	profile, err := client.CompanyProfile(context.Background(), "01234567")
	require.NoError(t, err)

	require.Equal(t, &models.CompanyProfile{
		Name:              "ACME WIDGETS LTD",
		TitleName:         "Acme Widgets Ltd",
		Number:            "01234567",
		Status:            "active",
		Type:              "ltd",
		Address:           "1 High Street, London, EC1A 1AA",
		IncorporatedOn:    "2015-06-01",
		AccountsDueOn:     "2026-03-31",
		ConfirmationDueOn: "2026-06-15",
	}, profile)
}

func TestCompaniesHouseClient_BasicAuth(t *testing.T) {
	_, client := newCompaniesHouseTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Basic "))

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		require.NoError(t, err)
		require.Equal(t, "test-api-key:", string(decoded))

		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	_, err := client.SearchCompanies(context.Background(), "anything")
	require.NoError(t, err)
}

func TestCompaniesHouseClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrCompanyNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUpstreamAuth},
		{"forbidden", http.StatusForbidden, ErrUpstreamAuth},
		{"server error", http.StatusInternalServerError, ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newCompaniesHouseTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.CompanyProfile(context.Background(), "01234567")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTitleCaseName(t *testing.T) {
	require.Equal(t, "Acme Widgets Ltd", models.TitleCaseName("ACME WIDGETS LTD"))
	require.Equal(t, "", models.TitleCaseName(""))
}
