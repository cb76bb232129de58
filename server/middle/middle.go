// Package middle contains middleware for use with the remora server.
package middle

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/dekarrin/remora/server/result"
	"github.com/tliron/commonlog"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

// Level is how severe a logged response is.
type Level int

const (
	Info Level = iota
	Error
)

// DontPanic is middleware that turns a panic in any handler further down the
// chain into an HTTP-500 response. The panic and its stack trace are written to
// log and are never shown to the client.
func DontPanic(log commonlog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if panicErr := recover(); panicErr != nil {
					r := result.TextErr(
						http.StatusInternalServerError,
						"An internal server error occurred",
						"panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack()),
					)
					LogResponse(log, Error, req, r.Status, r.InternalMsg)
					r.WriteResponse(w)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// LogResponse writes a single line describing the response to req to log.
func LogResponse(log commonlog.Logger, level Level, req *http.Request, respStatus int, msg string) {
	// we don't really care about the ephemeral port from the client end
	remoteAddrParts := strings.SplitN(req.RemoteAddr, ":", 2)
	remoteIP := remoteAddrParts[0]

	line := fmt.Sprintf("%s %s %s: HTTP-%d %s", remoteIP, req.Method, req.URL.Path, respStatus, msg)
	if level == Error {
		log.Error(line)
	} else {
		log.Info(line)
	}
}
