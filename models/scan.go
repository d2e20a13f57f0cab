package models

import "go-backoffice-gateway/extract"

// ScanResponse is the envelope returned for a successful passport scan.
type ScanResponse struct {
	Success bool                          `json:"success"`
	Data    extract.ExtractedPassportData `json:"data"`
	RawText string                        `json:"rawText"`
}

// APIError carries a taxonomy code alongside a human readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}
