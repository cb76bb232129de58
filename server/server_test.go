package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dekarrin/remora/server/api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"
)

const arithGrammar = `
format = "REMORA"
type = "GRAMMAR"
name = "arith"
extras = ['/\s/']

[[rule]]
name = "expr"
def = "prec.left(1, expr '+' expr) | prec.left(2, expr '*' expr) | NUMBER"

[[rule]]
name = "NUMBER"
def = '/\d+/'
`

func newTestServer(t *testing.T) *RemoraServer {
	grammarPath := filepath.Join(t.TempDir(), "arith.toml")
	require.NoError(t, os.WriteFile(grammarPath, []byte(arithGrammar), 0644))

	rs, err := New(context.Background(), Config{Grammars: []string{grammarPath}}, commonlog.GetLogger("remora.test"))
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs
}

func doRequest(rs *RemoraServer, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	rs.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, rs *RemoraServer, language, source string) api.SessionModel {
	body, err := json.Marshal(api.CreateSessionRequest{Language: language, Source: source})
	require.NoError(t, err)
	w := doRequest(rs, http.MethodPost, "/api/v1/sessions", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sess api.SessionModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	return sess
}

func Test_GetLanguages(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)

	// execute
	w := doRequest(rs, http.MethodGet, "/api/v1/languages", "")

	// assert
	assert.Equal(http.StatusOK, w.Code)
	assert.JSONEq(`{"languages": ["arith", "bolt"]}`, w.Body.String())
}

func Test_GetInfo(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)

	// execute
	w := doRequest(rs, http.MethodGet, "/api/v1/info", "")

	// assert
	assert.Equal(http.StatusOK, w.Code)
	var info api.InfoModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &info))
	assert.NotEmpty(info.Version.Server)
	assert.NotEmpty(info.Version.Remora)
}

func Test_CreateSession(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		body        string
		expectCode  int
		expectTree  string
		expectError bool
	}{
		{
			name:        "bolt source",
			contentType: "application/json",
			body:        `{"language": "bolt", "source": "let x"}`,
			expectCode:  http.StatusCreated,
			expectTree:  "(source_file (keyword) (identifier))",
		},
		{
			name:        "source with a syntax error",
			contentType: "application/json",
			body:        `{"language": "bolt", "source": "{ a"}`,
			expectCode:  http.StatusCreated,
			expectError: true,
		},
		{
			name:        "content type with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"language": "arith", "source": "1+2"}`,
			expectCode:  http.StatusCreated,
			expectTree:  "(expr (expr (NUMBER)) (expr (NUMBER)))",
		},
		{
			name:        "unknown language",
			contentType: "application/json",
			body:        `{"language": "cobol", "source": "MOVE A TO B"}`,
			expectCode:  http.StatusNotFound,
		},
		{
			name:        "missing language",
			contentType: "application/json",
			body:        `{"source": "let x"}`,
			expectCode:  http.StatusBadRequest,
		},
		{
			name:        "malformed JSON",
			contentType: "application/json",
			body:        `{"language": "bolt", "source": `,
			expectCode:  http.StatusBadRequest,
		},
		{
			name:        "not JSON",
			contentType: "text/plain",
			body:        "let x",
			expectCode:  http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			rs := newTestServer(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			w := httptest.NewRecorder()

			// execute
			rs.ServeHTTP(w, req)

			// assert
			if !assert.Equal(tc.expectCode, w.Code, w.Body.String()) {
				return
			}
			if tc.expectCode != http.StatusCreated {
				var errResp map[string]interface{}
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &errResp))
				assert.Contains(errResp, "error")
				return
			}

			var sess api.SessionModel
			if !assert.NoError(json.Unmarshal(w.Body.Bytes(), &sess)) {
				return
			}
			_, err := uuid.Parse(sess.ID)
			assert.NoError(err)
			assert.Equal("/api/v1/sessions/"+sess.ID, w.Header().Get("Location"))
			assert.Equal(tc.expectError, sess.HasError)
			if tc.expectError {
				assert.NotEmpty(sess.Errors)
			} else {
				assert.Equal(tc.expectTree, sess.Tree)
				assert.Empty(sess.Errors)
			}
		})
	}
}

func Test_GetSession(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)
	created := createSession(t, rs, "bolt", "let x")

	// execute
	w := doRequest(rs, http.MethodGet, "/api/v1/sessions/"+created.ID, "")

	// assert
	if !assert.Equal(http.StatusOK, w.Code) {
		return
	}
	var sess api.SessionModel
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(created.ID, sess.ID)
	assert.Equal("let x", sess.Source)
	assert.Equal("(source_file (keyword) (identifier))", sess.Tree)
	assert.Nil(sess.Stats)
}

func Test_GetSession_notFound(t *testing.T) {
	testCases := []struct {
		name string
		path string
	}{
		{name: "unknown ID", path: "/api/v1/sessions/" + uuid.New().String()},
		{name: "not a UUID", path: "/api/v1/sessions/12"},
		{name: "not a route", path: "/api/v1/grammars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			rs := newTestServer(t)

			// execute
			w := doRequest(rs, http.MethodGet, tc.path, "")

			// assert
			assert.Equal(http.StatusNotFound, w.Code)
			assert.Equal("application/json", w.Header().Get("Content-Type"))
		})
	}
}

func Test_EditSession(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectCode   int
		expectSource string
		expectTree   string
	}{
		{
			name:         "replace identifier",
			body:         `{"start": 4, "old_end": 5, "text": "[1]"}`,
			expectCode:   http.StatusOK,
			expectSource: "let [1]",
			expectTree:   "(source_file (keyword) (array_literal (number_literal)))",
		},
		{
			name:         "insert at start",
			body:         `{"start": 0, "old_end": 0, "text": "// hi\n"}`,
			expectCode:   http.StatusOK,
			expectSource: "// hi\nlet x",
			expectTree:   "(source_file (line_comment) (keyword) (identifier))",
		},
		{
			name:         "delete everything",
			body:         `{"start": 0, "old_end": 5}`,
			expectCode:   http.StatusOK,
			expectSource: "",
			expectTree:   "(source_file)",
		},
		{
			name:       "range past end",
			body:       `{"start": 4, "old_end": 50, "text": "y"}`,
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "missing old_end",
			body:       `{"start": 4, "text": "y"}`,
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"start": "four"}`,
			expectCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			rs := newTestServer(t)
			created := createSession(t, rs, "bolt", "let x")

			// execute
			w := doRequest(rs, http.MethodPatch, "/api/v1/sessions/"+created.ID, tc.body)

			// assert
			if !assert.Equal(tc.expectCode, w.Code, w.Body.String()) {
				return
			}
			if tc.expectCode != http.StatusOK {
				return
			}
			var sess api.SessionModel
			if !assert.NoError(json.Unmarshal(w.Body.Bytes(), &sess)) {
				return
			}
			assert.Equal(tc.expectSource, sess.Source)
			assert.Equal(tc.expectTree, sess.Tree)
			assert.False(sess.HasError)
			assert.Equal(1, sess.Edits)
			if assert.NotNil(sess.Stats) {
				assert.GreaterOrEqual(sess.Stats.MaxVersions, 1)
			}
		})
	}
}

func Test_EditSession_unknown(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)

	// execute
	w := doRequest(rs, http.MethodPatch, "/api/v1/sessions/"+uuid.New().String(), `{"start": 0, "old_end": 0, "text": "x"}`)

	// assert
	assert.Equal(http.StatusNotFound, w.Code)
}

func Test_DeleteSession(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)
	created := createSession(t, rs, "arith", "1+2")

	// execute
	w := doRequest(rs, http.MethodDelete, "/api/v1/sessions/"+created.ID, "")

	// assert
	assert.Equal(http.StatusNoContent, w.Code)
	assert.Empty(w.Body.String())
	assert.Equal(http.StatusNotFound, doRequest(rs, http.MethodGet, "/api/v1/sessions/"+created.ID, "").Code)
	assert.Equal(http.StatusNotFound, doRequest(rs, http.MethodDelete, "/api/v1/sessions/"+created.ID, "").Code)
}

func Test_MethodNotAllowed(t *testing.T) {
	assert := assert.New(t)

	// setup
	rs := newTestServer(t)

	// execute
	w := doRequest(rs, http.MethodDelete, "/api/v1/languages", "")

	// assert
	assert.Equal(http.StatusMethodNotAllowed, w.Code)
}

func Test_New_badGrammar(t *testing.T) {
	assert := assert.New(t)

	// setup
	grammarPath := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(grammarPath, []byte(`format = "REMORA"`), 0644))

	// execute
	_, err := New(context.Background(), Config{Grammars: []string{grammarPath}}, commonlog.GetLogger("remora.test"))

	// assert
	assert.Error(err)
	assert.Contains(err.Error(), grammarPath)
}
