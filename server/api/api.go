// Package api provides HTTP API endpoints for the remora server.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dekarrin/remora/server/middle"
	"github.com/dekarrin/remora/server/result"
	"github.com/dekarrin/remora/server/serr"
	"github.com/dekarrin/remora/server/service"
	"github.com/go-chi/chi/v5"
	"github.com/tliron/commonlog"
)

const (
	// PathPrefix is the prefix of all paths in the API. Routers should mount
	// a sub-router that routes all requests to the API at this path.
	PathPrefix = "/api/v1"
)

func getURLParam[E any](r *http.Request, key string, parse func(string) (E, error)) (val E, err error) {
	valStr := chi.URLParam(r, key)
	if valStr == "" {
		// either it does not exist or it is nil; treat both as the same and
		// return an error
		return val, serr.New("parameter does not exist", serr.ErrBadArgument)
	}

	val, err = parse(valStr)
	if err != nil {
		return val, serr.New("", serr.ErrBadArgument)
	}
	return val, nil
}

// API holds parameters for endpoints needed to run and a service layer that
// will perform most of the actual logic. To use API, create one and then
// assign the result of its HTTP* methods as handlers to a router or some other
// kind of server mux.
//
// This is exclusively an API for serving external requests. For direct
// programmatic access into the backend of a remora server via Go code, see
// [service.Service].
type API struct {
	// Backend is the service that the API calls to perform the requested
	// actions.
	Backend *service.Service

	// Log receives one line for every response sent.
	Log commonlog.Logger
}

// v must be a pointer to a type. Will return error such that
// errors.Is(err, serr.ErrBodyUnmarshal) returns true if it is problem decoding
// the JSON itself.
func parseJSON(req *http.Request, v interface{}) error {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return serr.New("request content-type is not application/json", serr.ErrBodyUnmarshal)
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	err = json.Unmarshal(bodyData, v)
	if err != nil {
		return serr.New("malformed JSON in request", err, serr.ErrBodyUnmarshal)
	}

	return nil
}

// errResult converts an error from the backend into the response to give the
// client.
func errResult(err error, doing string) result.Result {
	switch {
	case errors.Is(err, serr.ErrNotFound):
		return result.NotFound("%s: %s", doing, err.Error())
	case errors.Is(err, serr.ErrNoLanguage):
		return result.Err(http.StatusNotFound, err.Error(), "%s: %s", doing, err.Error())
	case errors.Is(err, serr.ErrBodyUnmarshal), errors.Is(err, serr.ErrBadArgument):
		return result.BadRequest(err.Error(), "%s: %s", doing, err.Error())
	default:
		return result.InternalServerError("%s: %s", doing, err.Error())
	}
}

// EndpointFunc produces the result of a single API call.
type EndpointFunc func(req *http.Request) result.Result

// Endpoint returns a HandlerFunc that calls ep, logs its result, and writes
// the result to the client.
func (api API) Endpoint(ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r := ep(req)

		// if this hasn't been properly created, output error directly and do not
		// try to read properties
		if r.Status == 0 {
			middle.LogResponse(api.Log, middle.Error, req, http.StatusInternalServerError, "endpoint result was never populated")
			http.Error(w, "An internal server error occurred", http.StatusInternalServerError)
			return
		}

		// pre-call PrepareMarshaledResponse bc if it fails in call to
		// WriteResponse, it will panic.
		if err := r.PrepareMarshaledResponse(); err != nil {
			r = result.InternalServerError("could not marshal JSON response: " + err.Error())
		}

		if r.IsErr {
			middle.LogResponse(api.Log, middle.Error, req, r.Status, r.InternalMsg)
		} else {
			middle.LogResponse(api.Log, middle.Info, req, r.Status, r.InternalMsg)
		}

		r.WriteResponse(w)
	}
}
