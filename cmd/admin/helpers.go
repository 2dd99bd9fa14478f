package main

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/render"

	"campus-cms/internal/cms"
	"campus-cms/internal/schema"
	"campus-cms/pkg/fsutils"
)

// errorBody is the JSON shape of every failed request. Validation failures
// list one entry per offending input.
type errorBody struct {
	Error  string                   `json:"error,omitempty"`
	Errors []*schema.ValidationError `json:"errors,omitempty"`
}

// errorResponse maps err to a status code and writes it as JSON.
func (app *adminApplication) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs schema.ValidationErrors
		verr  *schema.ValidationError
		perr  *schema.ParseError
	)
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	switch {
	case errors.As(err, &verrs):
		status = http.StatusUnprocessableEntity
		body = errorBody{Error: "validation failed", Errors: verrs}
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		body = errorBody{Error: "validation failed", Errors: []*schema.ValidationError{verr}}
	case errors.Is(err, cms.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cms.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, fsutils.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, cms.ErrInvalid), errors.As(err, &perr):
		status = http.StatusBadRequest
	default:
		app.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body = errorBody{Error: http.StatusText(status)}
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}

// decodeJSON reads the request body into dst, reporting malformed bodies as
// bad requests.
func (app *adminApplication) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		app.logger.Warn("Malformed request body", "path", r.URL.Path, "error", err)
		app.errorResponse(w, r, &schema.ParseError{Source: "request body", Err: err})
		return false
	}
	return true
}

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writeHTML writes a server-rendered fragment.
func writeHTML(w http.ResponseWriter, status int, html template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, html)
}

// direction reads ?dir=up|down.
func direction(r *http.Request) (schema.Direction, error) {
	dir, err := schema.ParseDirection(r.URL.Query().Get("dir"))
	if err != nil {
		return dir, fmt.Errorf("%w: %v", cms.ErrInvalid, err)
	}
	return dir, nil
}

// formError classifies a failure to parse a submitted form.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %v", fsutils.ErrTooLarge, err)
	}
	return &schema.ParseError{Source: "form", Err: err}
}
