package middle

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tliron/commonlog"
)

func Test_DontPanic(t *testing.T) {
	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		expectCode int
		expectBody string
	}{
		{
			name: "handler that panics",
			handler: func(w http.ResponseWriter, req *http.Request) {
				panic("the tree is gone")
			},
			expectCode: http.StatusInternalServerError,
			expectBody: "An internal server error occurred",
		},
		{
			name: "handler that does not panic",
			handler: func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				w.Write([]byte("ok"))
			},
			expectCode: http.StatusTeapot,
			expectBody: "ok",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			h := DontPanic(commonlog.GetLogger("remora.test"))(tc.handler)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil)
			w := httptest.NewRecorder()

			// execute
			assert.NotPanics(func() {
				h.ServeHTTP(w, req)
			})

			// assert
			assert.Equal(tc.expectCode, w.Code)
			assert.Equal(tc.expectBody, w.Body.String())
		})
	}
}
