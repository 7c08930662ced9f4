package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/lazytable/cache"
	"github.com/fulldump/lazytable/database"
	"github.com/fulldump/lazytable/service"
	"github.com/fulldump/lazytable/source"
	"github.com/fulldump/lazytable/transform"
	"github.com/fulldump/lazytable/view"
)

var ErrUnavailable = errors.New("temporary unavailable")

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func (p PrettyError) MarshalTo(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

func InterceptorUnavailable(db *database.Database) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {

			status := db.GetStatus()
			if status == database.StatusOpening || status == database.StatusClosing {
				box.SetError(ctx, fmt.Errorf("%w: %s", ErrUnavailable, status))
				return
			}
			next(ctx)
		}
	}
}

// errorStatus maps an error to its http status and a human description.
func errorStatus(ctx context.Context, err error) (int, string) {

	var transportError *source.TransportError
	var invalidInputError *transform.InvalidInputError
	var storeError *cache.StoreError
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError

	switch {
	case errors.Is(err, box.ErrResourceNotFound):
		return http.StatusNotFound, fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String())
	case errors.Is(err, box.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method)
	case errors.As(err, &syntaxError), errors.As(err, &typeError):
		return http.StatusBadRequest, "Malformed JSON"
	case errors.Is(err, service.ErrorInvalidWindow):
		return http.StatusBadRequest, "Invalid window"
	case errors.As(err, &invalidInputError):
		return http.StatusBadRequest, "Invalid input for the transform stage"
	case errors.Is(err, view.ErrNotMounted):
		return http.StatusConflict, "The table is not mounted"
	case errors.As(err, &transportError):
		return http.StatusBadGateway, "Remote source failed"
	case errors.Is(err, ErrUnavailable), errors.As(err, &storeError):
		return http.StatusServiceUnavailable, "Local cache not available"
	}

	return http.StatusInternalServerError, "Unexpected error"
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}

		status, description := errorStatus(ctx, err)

		w := box.GetResponse(ctx)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		PrettyError{
			Message:     err.Error(),
			Description: description,
		}.MarshalTo(w)
	}
}
