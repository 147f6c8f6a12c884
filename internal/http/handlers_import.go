package http

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"fintrack/internal/log"
)

var errMissingUpload = errors.New("no file uploaded")

// readUpload returns the uploaded document. Multipart requests carry it in
// field; any other content type is read as the raw body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", uploadError(err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, "", errMissingUpload
		}
		return data, mediaType, nil
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, "", uploadError(err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", errMissingUpload
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", uploadError(err)
	}
	if len(data) == 0 {
		return nil, "", errMissingUpload
	}
	return data, header.Header.Get("Content-Type"), nil
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return fmt.Errorf("read upload: %w", err)
}

// writeUploadError reports upload problems that never reached a service.
func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
	case errors.Is(err, errMissingUpload):
		BadRequestError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).WarnContext(r.Context(), "Upload failed", log.FieldError, err)
		BadRequestError("Could not read the uploaded file").Write(w)
	}
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r, "file")
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	result, err := s.finance.ImportCSV(r.Context(), profileFrom(r), bytes.NewReader(data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Data(result).
		Success(fmt.Sprintf("Imported %d transactions", result.Imported)).
		Write(w)
}

// handleScanReceipt accepts a multipart "image", a raw image body, or JSON
// {"image": "<base64>", "contentType": "..."}.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Receipt scanning is not configured").Write(w)
		return
	}
	data, contentType, err := s.readUpload(w, r, "image")
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	if contentType == "application/json" {
		if data, contentType, err = decodeBase64Image(data); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
	}

	result, err := s.scanner.Scan(r.Context(), profileFrom(r), data, contentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b := NewJSONResponse().Data(result)
	if result.AmountFound {
		b.Success("Receipt scanned, please review the expense")
	} else {
		b.Notify(NotificationWarning, "Could not detect amount")
	}
	b.Write(w)
}

func decodeBase64Image(body []byte) ([]byte, string, error) {
	p := &RequestBodyParser{body: body}
	if err := p.Parse(); err != nil || !p.IsJSON() {
		return nil, "", errors.New("invalid json body")
	}
	raw := p.Get("image")
	// Data URLs carry the media type in front of the payload.
	contentType := p.Get("contentType")
	if prefix, payload, ok := strings.Cut(raw, ";base64,"); ok {
		raw = payload
		if contentType == "" {
			contentType = strings.TrimPrefix(prefix, "data:")
		}
	}
	image, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(image) == 0 {
		return nil, "", errors.New("image must be base64 encoded")
	}
	return image, contentType, nil
}

// handleExport downloads the snapshot as a backup file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	profile := profileFrom(r)
	data, err := s.finance.Export(r.Context(), profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fintrack-%s.json"`, profile))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r, "file")
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	snap, err := s.finance.Restore(r.Context(), profileFrom(r), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Success("Backup restored").Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.Reset(r.Context(), profileFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Notify(NotificationInfo, "Profile reset to defaults").Write(w)
}
