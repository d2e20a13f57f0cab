package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"go-backoffice-gateway/models"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8081"

func startTestServer(t *testing.T, state *ServerState) *Server {
	t.Helper()

	if state.cache == nil {
		state.cache = NewInMemoryCacheStorage()
	}
	if state.companyClient == nil {
		state.companyClient = &fakeCompanyClient{}
	}
	if state.ocrProvider == nil {
		state.ocrProvider = fakeOcrProvider{text: "passport"}
	}

	srv, err := NewServer(state, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

// postImage uploads data as a multipart "image" part with the given
// filename and content type, the way the dashboard submits scans.
func postImage(t *testing.T, url string, filename string, contentType string, data []byte) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func getJSONBody(t *testing.T, url string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

func decodeErrorResponse(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var er models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	require.False(t, er.Success)
	return er
}

// tinyJpeg returns a small valid JPEG for upload tests.
func tinyJpeg(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(2, 2, color.RGBA{R: 30, G: 60, B: 90, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// test doubles

type fakeOcrProvider struct {
	text string
	err  error
}

func (f fakeOcrProvider) DetectDocumentText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeCompanyClient struct {
	summaries []models.CompanySummary
	profile   *models.CompanyProfile
	err       error

	searchCalls  int
	profileCalls int
}

func (f *fakeCompanyClient) SearchCompanies(_ context.Context, query string) ([]models.CompanySummary, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries, nil
}

func (f *fakeCompanyClient) CompanyProfile(_ context.Context, number string) (*models.CompanyProfile, error) {
	f.profileCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil {
		return nil, ErrCompanyNotFound
	}
	return f.profile, nil
}
