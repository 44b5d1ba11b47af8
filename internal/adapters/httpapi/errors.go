package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
)

func apiError(r *http.Request, code string, message string, details map[string]any) ErrorResponse {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, apiError(r, code, message, details))
}

// writeAppError renders *apperr.Error as-is; anything else becomes a 500 whose
// cause is logged but not exposed.
func writeAppError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if ae, ok := apperr.As(err); ok {
		if ae.Status >= 500 || ae.Cause != nil {
			log.Warn("request failed",
				zap.String("code", ae.Code),
				zap.Int("status", ae.Status),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(ae.Cause),
			)
		}
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	log.Error("unhandled error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
