package api

import (
	"net/http"

	"github.com/dekarrin/remora/internal/version"
	"github.com/dekarrin/remora/server/result"
)

// HTTPGetInfo returns a HandlerFunc that retrieves information on the API and
// server.
func (api API) HTTPGetInfo() http.HandlerFunc {
	return api.Endpoint(api.epGetInfo)
}

func (api API) epGetInfo(req *http.Request) result.Result {
	var resp InfoModel
	resp.Version.Server = version.ServerCurrent
	resp.Version.Remora = version.Current

	return result.OK(resp, "client got API info")
}

// HTTPGetLanguages returns a HandlerFunc that lists the languages sessions can
// be created with.
func (api API) HTTPGetLanguages() http.HandlerFunc {
	return api.Endpoint(api.epGetLanguages)
}

func (api API) epGetLanguages(req *http.Request) result.Result {
	resp := LanguagesModel{Languages: api.Backend.Languages()}
	return result.OK(resp, "client got %d language(s)", len(resp.Languages))
}
