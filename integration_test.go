package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"go-backoffice-gateway/models"

	"github.com/stretchr/testify/require"
)

func TestScanPassport_Success(t *testing.T) {
	ocrText := "PASSPORT\n" +
		"Surname: Smith\n" +
		"Given Names: John\n" +
		"Date of Birth: 15/03/1985\n" +
		"Nationality: British\n"
	startTestServer(t, &ServerState{ocrProvider: fakeOcrProvider{text: ocrText}})

	resp, body := postImage(t, testBaseURL+"/api/scan/passport", "passport.jpg", "image/jpeg", tinyJpeg(t))
	mustStatus(t, resp, http.StatusOK, body)

	var scan models.ScanResponse
	require.NoError(t, json.Unmarshal(body, &scan))
	require.True(t, scan.Success)
	require.Equal(t, ocrText, scan.RawText)
	require.Equal(t, "John", scan.Data.FirstName)
	require.Equal(t, "Smith", scan.Data.LastName)
	require.Equal(t, "1985-03-15", scan.Data.DateOfBirth)
	require.Equal(t, "British", scan.Data.Nationality)
	require.Greater(t, scan.Data.Confidence, 0.9)
}

func TestScanPassport_EnvelopeFieldNames(t *testing.T) {
	startTestServer(t, &ServerState{ocrProvider: fakeOcrProvider{text: "Surname: Smith\nDOB 15/03/1985"}})

	resp, body := postImage(t, testBaseURL+"/api/scan/passport", "passport.jpg", "image/jpeg", tinyJpeg(t))
	mustStatus(t, resp, http.StatusOK, body)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Contains(t, raw, "success")
	require.Contains(t, raw, "data")
	require.Contains(t, raw, "rawText")

	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["data"], &data))
	require.Contains(t, data, "dateOfBirth")
	require.Contains(t, data, "confidence")
}

func TestScanPassport_MissingFile(t *testing.T) {
	startTestServer(t, &ServerState{})

	// multipart body without an "image" part
	resp, err := http.Post(testBaseURL+"/api/scan/passport", "multipart/form-data; boundary=xyz",
		bytes.NewBufferString("--xyz--\r\n"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScanPassport_RejectsNonImageType(t *testing.T) {
	startTestServer(t, &ServerState{})

	resp, body := postImage(t, testBaseURL+"/api/scan/passport", "notes.pdf", "application/pdf", []byte("%PDF-1.4"))
	mustStatus(t, resp, http.StatusBadRequest, body)
	require.Equal(t, ErrCodeInvalidFormat, decodeErrorResponse(t, body).Error.Code)
}

func TestScanPassport_RejectsNonPOST(t *testing.T) {
	startTestServer(t, &ServerState{})

	resp, body := getJSONBody(t, testBaseURL+"/api/scan/passport", nil)
	mustStatus(t, resp, http.StatusMethodNotAllowed, body)
}

func TestScanPassport_ShortTextIsNoTextFound(t *testing.T) {
	startTestServer(t, &ServerState{ocrProvider: fakeOcrProvider{text: "  ab \n"}})

	resp, body := postImage(t, testBaseURL+"/api/scan/passport", "blurry.jpg", "image/jpeg", tinyJpeg(t))
	mustStatus(t, resp, http.StatusBadRequest, body)
	require.Equal(t, ErrCodeNoTextFound, decodeErrorResponse(t, body).Error.Code)
}

func TestScanPassport_OcrErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"billing disabled", errors.New("rpc error: This API method requires billing to be enabled"), http.StatusInternalServerError, "BILLING_NOT_ENABLED"},
		{"bad credentials", errors.New("could not load default credentials"), http.StatusInternalServerError, "CREDENTIAL_ERROR"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"bad image", errors.New("Bad image data"), http.StatusBadRequest, "INVALID_FORMAT"},
		{"anything else", errors.New("internal error"), http.StatusInternalServerError, "PROCESSING_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			startTestServer(t, &ServerState{ocrProvider: fakeOcrProvider{err: tt.err}})

			resp, body := postImage(t, testBaseURL+"/api/scan/passport", "passport.jpg", "image/jpeg", tinyJpeg(t))
			mustStatus(t, resp, tt.wantStatus, body)
			require.Equal(t, tt.wantCode, decodeErrorResponse(t, body).Error.Code)
		})
	}
}

func TestCompanySearch(t *testing.T) {
	client := &fakeCompanyClient{summaries: []models.CompanySummary{
		{Name: "ACME WIDGETS LTD", TitleName: "Acme Widgets Ltd", Number: "01234567", Status: "active"},
	}}
	startTestServer(t, &ServerState{companyClient: client})

	resp, body := getJSONBody(t, testBaseURL+"/api/company/search?q=acme", nil)
	mustStatus(t, resp, http.StatusOK, body)

	var result models.CompanySearchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Items, 1)
	require.Equal(t, "01234567", result.Items[0].Number)
	require.Equal(t, 1, client.searchCalls)
}

func TestCompanySearch_MissingQuery(t *testing.T) {
	startTestServer(t, &ServerState{})

	resp, body := getJSONBody(t, testBaseURL+"/api/company/search", nil)
	mustStatus(t, resp, http.StatusBadRequest, body)
	require.Equal(t, ErrCodeInvalidFormat, decodeErrorResponse(t, body).Error.Code)
}

func TestCompanyProfile_CachesResult(t *testing.T) {
	client := &fakeCompanyClient{profile: &models.CompanyProfile{
		Name:   "ACME WIDGETS LTD",
		Number: "01234567",
		Status: "active",
	}}
	startTestServer(t, &ServerState{companyClient: client})

	for i := 0; i < 3; i++ {
		resp, body := getJSONBody(t, testBaseURL+"/api/company/01234567", nil)
		mustStatus(t, resp, http.StatusOK, body)

		var profile models.CompanyProfile
		require.NoError(t, json.Unmarshal(body, &profile))
		require.Equal(t, "01234567", profile.Number)
	}

	// First request hits the upstream, the rest come from cache.
	require.Equal(t, 1, client.profileCalls)
}

func TestCompanyProfile_CorruptCacheEntryDropped(t *testing.T) {
	client := &fakeCompanyClient{profile: &models.CompanyProfile{
		Name:   "ACME WIDGETS LTD",
		Number: "01234567",
		Status: "active",
	}}
	cache := NewInMemoryCacheStorage()
	require.NoError(t, cache.Store(companyProfileCacheKey("01234567"), "{not json", time.Hour))
	startTestServer(t, &ServerState{companyClient: client, cache: cache})

	resp, body := getJSONBody(t, testBaseURL+"/api/company/01234567", nil)
	mustStatus(t, resp, http.StatusOK, body)

	var profile models.CompanyProfile
	require.NoError(t, json.Unmarshal(body, &profile))
	require.Equal(t, "01234567", profile.Number)
	require.Equal(t, 1, client.profileCalls)

	// The bad entry was replaced with the freshly fetched profile
	cached, err := cache.Retrieve(companyProfileCacheKey("01234567"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(cached), &profile))
}

func TestCompanyProfile_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", ErrCompanyNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"bad api key", ErrUpstreamAuth, http.StatusInternalServerError, ErrCodeCredential},
		{"upstream down", ErrUpstreamFailure, http.StatusBadGateway, ErrCodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			startTestServer(t, &ServerState{companyClient: &fakeCompanyClient{err: tt.err}})

			resp, body := getJSONBody(t, testBaseURL+"/api/company/01234567", nil)
			mustStatus(t, resp, tt.wantStatus, body)
			require.Equal(t, tt.wantCode, decodeErrorResponse(t, body).Error.Code)
		})
	}
}

func TestAuth_DisabledWhenUnconfigured(t *testing.T) {
	startTestServer(t, &ServerState{ocrProvider: fakeOcrProvider{text: "Surname: Smith here"}})

	resp, body := postImage(t, testBaseURL+"/api/scan/passport", "passport.jpg", "image/jpeg", tinyJpeg(t))
	mustStatus(t, resp, http.StatusOK, body)
}

func TestAuth_LoginAndBearerToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	startTestServer(t, &ServerState{
		ocrProvider:       fakeOcrProvider{text: "Surname: Smith here"},
		sessionTokens:     NewRsaSessionTokenCreatorFromKey(key, "backoffice_gateway"),
		dashboardPassword: "hunter2",
	})

	// Protected route without a token
	resp, body := getJSONBody(t, testBaseURL+"/api/company/search?q=acme", nil)
	mustStatus(t, resp, http.StatusUnauthorized, body)
	require.Equal(t, ErrCodeUnauthorized, decodeErrorResponse(t, body).Error.Code)

	// Wrong password
	resp, err = http.Post(testBaseURL+"/api/login", "application/json",
		bytes.NewBufferString(`{"password":"wrong"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct password yields a usable token
	resp, err = http.Post(testBaseURL+"/api/login", "application/json",
		bytes.NewBufferString(`{"password":"hunter2"}`))
	require.NoError(t, err)
	var login models.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.Token)

	resp, body = getJSONBody(t, testBaseURL+"/api/company/search?q=acme", map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	mustStatus(t, resp, http.StatusOK, body)

	// Garbage token is still rejected
	resp, body = getJSONBody(t, testBaseURL+"/api/company/search?q=acme", map[string]string{
		"Authorization": "Bearer not-a-jwt",
	})
	mustStatus(t, resp, http.StatusUnauthorized, body)
}

func TestGenerateScanId(t *testing.T) {
	id := GenerateScanId()
	require.Len(t, id, 32)
	for _, c := range id {
		require.Contains(t, "0123456789abcdef", string(c))
	}
	require.NotEqual(t, id, GenerateScanId())
}
