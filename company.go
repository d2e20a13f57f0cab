package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-backoffice-gateway/models"

	"github.com/gorilla/mux"
)

// Profiles barely change day to day; an hour keeps the renewal screens
// fresh enough without hammering Companies House.
const companyProfileCacheTTL = time.Hour

func companyProfileCacheKey(number string) string {
	return fmt.Sprintf("company:profile:%s", number)
}

func handleCompanySearch(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	query := r.URL.Query().Get("q")
	if query == "" {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "missing query parameter q", nil)
		return
	}

	slog.Info("Received company search request", "query", query)

	summaries, err := state.companyClient.SearchCompanies(r.Context(), query)
	if err != nil {
		respondWithCompanyErr(w, err, "company search failed")
		return
	}

	if err := writeJSON(w, http.StatusOK, models.CompanySearchResponse{Items: summaries}); err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, ERR_MARSHAL, err)
		return
	}

	slog.Info("Company search completed", "query", query, "hits", len(summaries))
}

func handleCompanyProfile(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	number := mux.Vars(r)["number"]
	if number == "" {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "missing company number", nil)
		return
	}

	slog.Info("Received company profile request", "company_number", number)

	if cached, err := state.cache.Retrieve(companyProfileCacheKey(number)); err == nil {
		var profile models.CompanyProfile
		unmarshalErr := json.Unmarshal([]byte(cached), &profile)
		if unmarshalErr == nil {
			slog.Debug("Serving company profile from cache", "company_number", number)
			if err := writeJSON(w, http.StatusOK, profile); err != nil {
				writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, ERR_MARSHAL, err)
			}
			return
		}
		// Corrupt cache entry, drop it and fall through to the upstream call
		slog.Warn("Dropping undecodable cache entry", "company_number", number, "error", unmarshalErr)
		if err := state.cache.Remove(companyProfileCacheKey(number)); err != nil {
			slog.Warn("Failed to remove cache entry", "company_number", number, "error", err)
		}
	}

	profile, err := state.companyClient.CompanyProfile(r.Context(), number)
	if err != nil {
		respondWithCompanyErr(w, err, "company profile lookup failed")
		return
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := state.cache.Store(companyProfileCacheKey(number), string(payload), companyProfileCacheTTL); err != nil {
			// Caching is best effort, the response still goes out
			slog.Warn("Failed to cache company profile", "company_number", number, "error", err)
		}
	}

	if err := writeJSON(w, http.StatusOK, profile); err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, ERR_MARSHAL, err)
		return
	}

	slog.Info("Company profile lookup completed", "company_number", number)
}

func respondWithCompanyErr(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrCompanyNotFound):
		writeAPIError(w, http.StatusNotFound, ErrCodeNotFound, "company not found", err)
	case errors.Is(err, ErrUpstreamAuth):
		writeAPIError(w, http.StatusInternalServerError, ErrCodeCredential, "companies house rejected our api key", err)
	default:
		writeAPIError(w, http.StatusBadGateway, ErrCodeUpstream, logMsg, err)
	}
}
