package api

// note that these are *not* the store models; those are distinct and closer
// to the DB format they are in. Rather these are the models that are received
// from and sent to the client.

type InfoModel struct {
	Version struct {
		Server string `json:"server"`
		Remora string `json:"remora"`
	} `json:"version"`
}

type LanguagesModel struct {
	Languages []string `json:"languages"`
}

type CreateSessionRequest struct {
	Language string `json:"language"`
	Source   string `json:"source"`
}

// EditRequest replaces the bytes [Start, OldEnd) of a session's source with
// Text. Start and OldEnd are required.
type EditRequest struct {
	Start  *int   `json:"start"`
	OldEnd *int   `json:"old_end"`
	Text   string `json:"text"`
}

type SessionModel struct {
	URI      string      `json:"uri"`
	ID       string      `json:"id"`
	Language string      `json:"language"`
	Source   string      `json:"source"`
	Tree     string      `json:"tree"`
	HasError bool        `json:"has_error"`
	Errors   []string    `json:"errors,omitempty"`
	Edits    int         `json:"edits"`
	Stats    *StatsModel `json:"stats,omitempty"`
}

type StatsModel struct {
	TokensLexed int `json:"tokens_lexed"`
	NodesReused int `json:"nodes_reused"`
	MaxVersions int `json:"max_versions"`
}
