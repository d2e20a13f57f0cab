package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-backoffice-gateway/models"
	"go-backoffice-gateway/vision"

	"github.com/gorilla/mux"
)

// Taxonomy codes shared by every error response body.
const (
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeFileTooLarge  = "FILE_TOO_LARGE"
	ErrCodeNoTextFound   = "NO_TEXT_FOUND"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeProcessing    = string(vision.ErrProcessing)
	ErrCodeCredential    = string(vision.ErrCredential)
)

const ERR_MARSHAL = "failed to marshal response message"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	ocrProvider       vision.OcrProvider
	companyClient     CompanyLookupClient
	cache             CacheStorage
	sessionTokens     SessionTokenCreator
	dashboardPassword string
}

type SpaHandler struct {
	staticPath string
	indexPath  string
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// ServeHTTP inspects the URL path to locate a file within the static dir
// on the SPA handler. If a file is found, it will be served. If not, the
// file located at the index path on the SPA handler will be served. This
// is suitable behavior for serving an SPA (single page application).
// https://github.com/gorilla/mux?tab=readme-ov-file#serving-single-page-applications
func (h SpaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("SPA handler serving request", "path", r.URL.Path)
	// Join internally call path.Clean to prevent directory traversal
	path := filepath.Join(h.staticPath, r.URL.Path)
	// check whether a file exists or is a directory at the given path
	fi, err := os.Stat(path)
	if os.IsNotExist(err) || fi.IsDir() {
		// file does not exist or path is a directory, serve index.html
		slog.Debug("Serving index.html for path", "path", r.URL.Path)
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	if err != nil {
		// if we got an error (that wasn't that the file doesn't exist) stating the
		// file, return a 500 internal server error and stop
		slog.Error("Error stating file", "path", path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// otherwise, use http.FileServer to serve the static file
	slog.Debug("Serving static file", "path", path)
	http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(state, w, r)
	})
	router.HandleFunc("/api/scan/passport", state.requireSession(func(w http.ResponseWriter, r *http.Request) {
		handleScanPassport(state, w, r)
	}))
	router.HandleFunc("/api/company/search", state.requireSession(func(w http.ResponseWriter, r *http.Request) {
		handleCompanySearch(state, w, r)
	})).Methods(http.MethodGet)
	router.HandleFunc("/api/company/{number}", state.requireSession(func(w http.ResponseWriter, r *http.Request) {
		handleCompanyProfile(state, w, r)
	})).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	spa := SpaHandler{staticPath: "../frontend/build", indexPath: "index.html"}
	router.PathPrefix("/").Handler(spa)

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		// Write allows for the upload + OCR round trip.
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

// requireSession wraps a handler with bearer-token verification. When no
// token creator is configured the check is disabled entirely.
func (state *ServerState) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if state.sessionTokens == nil {
			next(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeAPIError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token", nil)
			return
		}

		subject, err := state.sessionTokens.VerifySessionToken(token)
		if err != nil {
			writeAPIError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid session token", err)
			return
		}

		slog.Debug("Session verified", "subject", subject, "path", r.URL.Path)
		next(w, r)
	}
}

func handleLogin(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	if state.sessionTokens == nil || state.dashboardPassword == "" {
		writeAPIError(w, http.StatusNotFound, ErrCodeNotFound, "login is not configured", nil)
		return
	}

	var request models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "invalid login request", err)
		return
	}

	if request.Password != state.dashboardPassword {
		writeAPIError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "wrong password", nil)
		return
	}

	token, err := state.sessionTokens.CreateSessionToken("dashboard")
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, "failed to create session token", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, models.LoginResponse{Token: token}); err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, ERR_MARSHAL, err)
		return
	}

	slog.Info("Dashboard login succeeded")
}

// GenerateScanId returns a random hex id used to correlate log lines for
// one scan request.
func GenerateScanId() string {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		slog.Error("failed to generate scan ID", "error", err)
		return ""
	}
	return fmt.Sprintf("%x", id)
}

// writeAPIError logs the failure and writes the taxonomy error body.
func writeAPIError(w http.ResponseWriter, status int, code string, message string, e error) {
	slog.Error(message, "error", e, "status_code", status, "error_code", code)
	body := models.ErrorResponse{
		Success: false,
		Error:   models.APIError{Code: code, Message: message},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error(ERR_MARSHAL, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		writeAPIError(w, http.StatusMethodNotAllowed, ErrCodeInvalidFormat, "method not allowed", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
