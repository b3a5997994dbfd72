package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/identity"
)

const maxBodyBytes = 1 << 20

const internalErrorMessage = "internal server error"

const invalidBodyMessage = "invalid request body"

// envelope is embedded in every response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	envelope
	Code  apperrors.Code `json:"code"`
	Field string         `json:"field,omitempty"`
}

func ok(message string) envelope {
	return envelope{Success: true, Message: message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// writeError renders err as a failure envelope. Messages of server-side
// failures are replaced by a generic one and the full chain is logged.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	response := errorResponse{
		envelope: envelope{Success: false, Message: internalErrorMessage},
		Code:     code,
	}

	domainErr, isDomain := apperrors.As(err)
	if isDomain && code.Public() {
		response.Message = domainErr.Message
		response.Field = domainErr.Metadata["Field"]
	} else {
		response.Code = apperrors.CodeInternal
	}

	if logger != nil {
		entry := logger.WithFields(logrus.Fields{
			"code":   code,
			"status": status,
		})
		if r != nil {
			entry = entry.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
		}
		if status >= http.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.WithError(err).Debug("request rejected")
		}
	}
	writeJSON(w, status, response)
}

// ErrorWriter renders identity rejections with the API's failure envelope.
func ErrorWriter(logger logrus.FieldLogger) identity.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, logger, r, err)
	}
}

// decodeJSON reads a bounded JSON body into target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("body", "request body is required")
		}
		return invalidBody(err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return invalidBody(err)
	}
	return nil
}

func invalidBody(cause error) error {
	invalid := apperrors.Validation("body", invalidBodyMessage)
	invalid.Cause = cause
	return invalid
}

// errRouteNotFound answers requests no route matches.
var errRouteNotFound = apperrors.NotFound("route not found")
