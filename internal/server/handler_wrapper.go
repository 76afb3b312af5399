package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/csvdb/internal/errors"
)

// maxBodySize bounds request bodies. A record is a handful of short strings.
const maxBodySize = 1 << 20

// Wrap wraps a handler function to work as an http.Handler.
//
// The request body, when present, is decoded as JSON into In. Struct fields
// tagged `path:"name"` receive the path parameter and fields tagged
// `query:"name"` the query parameter; string, int and bool fields are
// supported. Out is encoded as JSON. An error implementing
// apierrors.ErrorWithStatus selects the status code, any other error is a 500.
//
// Example:
//
//	type GetRecordRequest struct {
//	    ID string `path:"id"`
//	}
//
//	func (h *RecordHandler) GetRecord(ctx context.Context, req GetRecordRequest) (*RecordResponse, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeErrorResponse(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Failed to read request body", nil)
			return
		}
		var input In
		if len(bytes.TrimSpace(body)) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			if err := d.Decode(&input); err != nil {
				slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
				writeErrorResponse(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Invalid request body", nil)
				return
			}
		}
		if err := populateParams(r, &input); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, apierrors.ErrValidationFailed, err.Error(), nil)
			return
		}

		output, err := fn(ctx, input)
		if err != nil {
			statusCode := http.StatusInternalServerError
			errorCode := apierrors.ErrInternal
			var details map[string]any
			var ews apierrors.ErrorWithStatus
			if errors.As(err, &ews) {
				statusCode = ews.StatusCode()
				errorCode = ews.Code()
				details = ews.Details()
			}
			if statusCode >= http.StatusInternalServerError {
				slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
			} else {
				slog.DebugContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
			}
			writeErrorResponse(w, statusCode, errorCode, err.Error(), details)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populateParams fills the fields of input tagged with `path` or `query`.
func populateParams(r *http.Request, input any) error {
	elem := reflect.ValueOf(input).Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		var name, value string
		if tag := field.Tag.Get("path"); tag != "" {
			name, value = tag, r.PathValue(tag)
		} else if tag := field.Tag.Get("query"); tag != "" {
			name, value = tag, query.Get(tag)
		}
		if value == "" {
			continue
		}
		//nolint:exhaustive // Only string, int and bool parameters are supported.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(value)
		case reflect.Int:
			v, err := strconv.Atoi(value)
			if err != nil {
				return errors.New("invalid integer parameter " + name)
			}
			elem.Field(i).SetInt(int64(v))
		case reflect.Bool:
			v, err := strconv.ParseBool(value)
			if err != nil {
				return errors.New("invalid boolean parameter " + name)
			}
			elem.Field(i).SetBool(v)
		default:
		}
	}
	return nil
}

// writeErrorResponse writes an error response as JSON with code and details.
func writeErrorResponse(w http.ResponseWriter, statusCode int, code apierrors.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if len(details) > 0 {
		response["details"] = details
	}
	_ = json.NewEncoder(w).Encode(response)
}
