package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/app/documents"
)

const maxJSONBodyBytes = 64 << 10

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// readUpload reads the "file" part of a multipart body. A missing part yields
// an input with no content, which the documents service rejects.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (documents.UploadInput, error) {
	limit := s.MaxUploadBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return documents.UploadInput{}, documents.TooLarge(s.MaxUploadBytes)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return documents.UploadInput{}, nil
		}
		return documents.UploadInput{}, &apperr.Error{
			Status:  http.StatusBadRequest,
			Code:    "INVALID_MULTIPART",
			Message: "Malformed multipart body.",
			Details: map[string]any{"body": err.Error()},
		}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return documents.UploadInput{}, nil
	}
	fh := headers[0]
	if fh.Size > s.MaxUploadBytes {
		return documents.UploadInput{}, documents.TooLarge(s.MaxUploadBytes)
	}

	var f openapi_types.File
	f.InitFromMultipart(fh)
	content, err := f.Bytes()
	if err != nil {
		return documents.UploadInput{}, fmt.Errorf("read upload: %w", err)
	}
	return documents.UploadInput{
		Content:             content,
		DeclaredContentType: fh.Header.Get("Content-Type"),
		Filename:            f.Filename(),
	}, nil
}
