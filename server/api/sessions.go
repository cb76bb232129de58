package api

import (
	"net/http"

	"github.com/dekarrin/remora/server/result"
	"github.com/dekarrin/remora/server/service"
	"github.com/google/uuid"
)

// HTTPCreateSession returns a HandlerFunc that parses a new source and starts
// a session for editing it.
func (api API) HTTPCreateSession() http.HandlerFunc {
	return api.Endpoint(api.epCreateSession)
}

func (api API) epCreateSession(req *http.Request) result.Result {
	var createReq CreateSessionRequest
	if err := parseJSON(req, &createReq); err != nil {
		return errResult(err, "create session")
	}
	if createReq.Language == "" {
		return result.BadRequest("language: property is empty or missing from request", "empty language")
	}

	sess, err := api.Backend.CreateSession(req.Context(), createReq.Language, []byte(createReq.Source))
	if err != nil {
		return errResult(err, "create session")
	}

	resp := sessionModel(sess, false)
	return result.Created(resp, "created %s session %s", sess.Language, sess.ID).
		WithHeader("Location", resp.URI)
}

// HTTPGetSession returns a HandlerFunc that gets the current source and tree
// of a session.
func (api API) HTTPGetSession() http.HandlerFunc {
	return api.Endpoint(api.epGetSession)
}

func (api API) epGetSession(req *http.Request) result.Result {
	id, err := getURLParam(req, "id", uuid.Parse)
	if err != nil {
		return result.NotFound()
	}

	sess, err := api.Backend.GetSession(req.Context(), id)
	if err != nil {
		return errResult(err, "get session "+id.String())
	}

	return result.OK(sessionModel(sess, false), "got session %s", id)
}

// HTTPEditSession returns a HandlerFunc that applies an edit to the source of
// a session and re-parses it.
func (api API) HTTPEditSession() http.HandlerFunc {
	return api.Endpoint(api.epEditSession)
}

func (api API) epEditSession(req *http.Request) result.Result {
	id, err := getURLParam(req, "id", uuid.Parse)
	if err != nil {
		return result.NotFound()
	}

	var editReq EditRequest
	if err := parseJSON(req, &editReq); err != nil {
		return errResult(err, "edit session "+id.String())
	}
	if editReq.Start == nil {
		return result.BadRequest("start: property is missing from request", "no start")
	}
	if editReq.OldEnd == nil {
		return result.BadRequest("old_end: property is missing from request", "no old_end")
	}

	sess, err := api.Backend.EditSession(req.Context(), id, *editReq.Start, *editReq.OldEnd, []byte(editReq.Text))
	if err != nil {
		return errResult(err, "edit session "+id.String())
	}

	return result.OK(sessionModel(sess, true), "session %s edit %d reused %d node(s)", id, sess.Edits, sess.Stats.NodesReused)
}

// HTTPDeleteSession returns a HandlerFunc that ends a session.
func (api API) HTTPDeleteSession() http.HandlerFunc {
	return api.Endpoint(api.epDeleteSession)
}

func (api API) epDeleteSession(req *http.Request) result.Result {
	id, err := getURLParam(req, "id", uuid.Parse)
	if err != nil {
		return result.NotFound()
	}

	_, err = api.Backend.DeleteSession(req.Context(), id)
	if err != nil {
		return errResult(err, "delete session "+id.String())
	}

	return result.NoContent("deleted session %s", id)
}

func sessionModel(sess service.Session, withStats bool) SessionModel {
	m := SessionModel{
		URI:      PathPrefix + "/sessions/" + sess.ID.String(),
		ID:       sess.ID.String(),
		Language: sess.Language,
		Source:   string(sess.Source),
		Edits:    sess.Edits,
	}
	if sess.Tree != nil {
		m.Tree = sess.Tree.SExpr()
		m.HasError = sess.Tree.HasError()
	}
	for _, d := range sess.Diagnostics {
		m.Errors = append(m.Errors, d.String())
	}
	if withStats {
		m.Stats = &StatsModel{
			TokensLexed: sess.Stats.TokensLexed,
			NodesReused: sess.Stats.NodesReused,
			MaxVersions: sess.Stats.MaxVersions,
		}
	}
	return m
}
