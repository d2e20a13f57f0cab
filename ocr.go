package main

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go-backoffice-gateway/extract"
	"go-backoffice-gateway/images"
	"go-backoffice-gateway/models"
	"go-backoffice-gateway/vision"
)

// Vision rejects synchronous requests above 20 MB, so there is no point
// accepting more.
const MaxUploadBytes = 20 << 20

// MinOcrTextLength is the least amount of trimmed text that can plausibly
// come from a readable document photo.
const MinOcrTextLength = 5

func handleScanPassport(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	scanId := GenerateScanId()
	slog.Info("Received passport scan request", "scan_id", scanId)

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "no image file uploaded", err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "no image file uploaded", err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close uploaded file", "scan_id", scanId, "error", err)
		}
	}()

	if header.Size > MaxUploadBytes {
		writeAPIError(w, http.StatusBadRequest, ErrCodeFileTooLarge, "image exceeds the 20MB upload limit", nil)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !isAllowedImageType(contentType) {
		writeAPIError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "uploaded file is not a supported image type", nil)
		return
	}

	slog.Debug("Upload accepted", "scan_id", scanId, "content_type", contentType, "size", header.Size)

	data, err := io.ReadAll(file)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, "failed to read uploaded file", err)
		return
	}

	prepared := images.PrepareForOCR(data)

	text, err := state.ocrProvider.DetectDocumentText(r.Context(), prepared)
	if err != nil {
		code := vision.ClassifyError(err)
		writeAPIError(w, statusForOcrError(code), string(code), ocrErrorMessage(code), err)
		return
	}

	if len(strings.TrimSpace(text)) < MinOcrTextLength {
		writeAPIError(w, http.StatusBadRequest, ErrCodeNoTextFound, "could not extract text from the image, please retry with a clearer photo", nil)
		return
	}

	result := extract.ParsePassportText(text)
	slog.Info("Passport scan completed", "scan_id", scanId,
		"confidence", result.Confidence,
		"has_name", result.FirstName != "" || result.LastName != "",
		"has_dob", result.DateOfBirth != "",
		"has_nationality", result.Nationality != "")

	response := models.ScanResponse{
		Success: true,
		Data:    result,
		RawText: text,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeAPIError(w, http.StatusInternalServerError, ErrCodeProcessing, ERR_MARSHAL, err)
		return
	}
}

func isAllowedImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/jpg":
		return true
	}
	return strings.HasPrefix(contentType, "image/")
}

func statusForOcrError(code vision.ErrorCode) int {
	switch code {
	case vision.ErrInvalidFormat:
		return http.StatusBadRequest
	case vision.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func ocrErrorMessage(code vision.ErrorCode) string {
	switch code {
	case vision.ErrBillingNotEnabled:
		return "the OCR service is not available: billing is not enabled"
	case vision.ErrCredential:
		return "the OCR service rejected our credentials"
	case vision.ErrTimeout:
		return "the OCR service took too long to respond"
	case vision.ErrInvalidFormat:
		return "the OCR service could not read the image"
	default:
		return "failed to process the image"
	}
}
