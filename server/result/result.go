// Package result contains results that are used to write out API responses.
//
// Every constructor takes an optional internal message: a format string
// followed by its arguments. The internal message goes to the server log and
// is never sent to the client.
package result

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// internal formats the optional internal message given to a constructor,
// using def if there is none.
func internal(def string, internalMsg []interface{}) string {
	if len(internalMsg) < 1 {
		return def
	}
	return fmt.Sprintf(internalMsg[0].(string), internalMsg[1:]...)
}

// OK returns a Result containing an HTTP-200 with respObj as the body.
func OK(respObj interface{}, internalMsg ...interface{}) Result {
	return Response(http.StatusOK, respObj, "%s", internal("OK", internalMsg))
}

// NoContent returns a Result containing an HTTP-204.
func NoContent(internalMsg ...interface{}) Result {
	return Response(http.StatusNoContent, nil, "%s", internal("no content", internalMsg))
}

// Created returns a Result containing an HTTP-201 with respObj, the created
// resource, as the body.
func Created(respObj interface{}, internalMsg ...interface{}) Result {
	return Response(http.StatusCreated, respObj, "%s", internal("created", internalMsg))
}

// BadRequest returns a Result containing an HTTP-400 that tells the client
// userMsg.
func BadRequest(userMsg string, internalMsg ...interface{}) Result {
	return Err(http.StatusBadRequest, userMsg, "%s", internal("bad request", internalMsg))
}

// MethodNotAllowed returns a Result containing an HTTP-405 for req.
func MethodNotAllowed(req *http.Request, internalMsg ...interface{}) Result {
	userMsg := fmt.Sprintf("Method %s is not allowed for %s", req.Method, req.URL.Path)
	return Err(http.StatusMethodNotAllowed, userMsg, "%s", internal("method not allowed", internalMsg))
}

// NotFound returns a Result containing an HTTP-404.
func NotFound(internalMsg ...interface{}) Result {
	return Err(http.StatusNotFound, "The requested resource was not found", "%s", internal("not found", internalMsg))
}

// InternalServerError returns a Result containing an HTTP-500. The client is
// only told that something went wrong.
func InternalServerError(internalMsg ...interface{}) Result {
	return Err(http.StatusInternalServerError, "An internal server error occurred", "%s", internal("internal server error", internalMsg))
}

// Response returns a successful JSON Result. If status is
// http.StatusNoContent, respObj is not read and may be nil.
func Response(status int, respObj interface{}, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        respObj,
	}
}

// Err returns an error Result whose body is an ErrorResponse carrying
// userMsg.
func Err(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp: ErrorResponse{
			Error:  userMsg,
			Status: status,
		},
	}
}

// TextErr is like Err but writes userMsg as plain text with no JSON encoding
// of any kind. It is for responses that must not fail to be written.
func TextErr(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        userMsg,
	}
}

// Result is the outcome of an endpoint. It holds the response to send along
// with a message for the server log that the client never sees.
type Result struct {
	Status      int
	IsErr       bool
	IsJSON      bool
	InternalMsg string

	resp interface{}
	hdrs [][2]string

	// set by calling PrepareMarshaledResponse.
	body []byte
}

// WithHeader returns a copy of r that also sets the header name to val.
func (r Result) WithHeader(name, val string) Result {
	cp := r
	cp.body = nil
	cp.hdrs = make([][2]string, len(r.hdrs), len(r.hdrs)+1)
	copy(cp.hdrs, r.hdrs)
	cp.hdrs = append(cp.hdrs, [2]string{name, val})
	return cp
}

// PrepareMarshaledResponse encodes the body of r ahead of WriteResponse, so
// an encoding failure can be handled before anything is sent. Once it has
// succeeded, calling it again has no effect.
func (r *Result) PrepareMarshaledResponse() error {
	if r.body != nil {
		return nil
	}

	switch {
	case r.Status == http.StatusNoContent:
		r.body = []byte{}
	case r.IsJSON:
		data, err := json.Marshal(r.resp)
		if err != nil {
			return err
		}
		r.body = data
	default:
		r.body = []byte(fmt.Sprintf("%v", r.resp))
	}

	return nil
}

// WriteResponse writes r to w. It panics if r was not created by one of the
// constructors in this package or if its body cannot be encoded.
func (r Result) WriteResponse(w http.ResponseWriter) {
	if r.Status == 0 {
		panic("result not populated")
	}

	if err := r.PrepareMarshaledResponse(); err != nil {
		panic(fmt.Sprintf("could not marshal response: %s", err.Error()))
	}

	if r.IsJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	for i := range r.hdrs {
		w.Header().Set(r.hdrs[i][0], r.hdrs[i][1])
	}

	w.WriteHeader(r.Status)

	if r.Status != http.StatusNoContent {
		w.Write(r.body)
	}
}
