package topvisor

import (
	"encoding/json"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

// Normalized record types. Each carries the fixed field whitelist for its
// endpoint: unknown provider fields are dropped by the decode, missing
// fields stay nil and serialize as JSON null.

// Project is one rank-tracking project.
type Project struct {
	ID      *string `json:"id"`
	Name    *string `json:"name"`
	URL     *string `json:"url"`
	Status  *string `json:"status"`
	Created *string `json:"created"`
}

type rawProject struct {
	ID      *flexString `json:"id"`
	Name    *string     `json:"name"`
	URL     *string     `json:"url"`
	Status  *flexString `json:"status"`
	DateAdd *string     `json:"date_add"`
}

func (r rawProject) normalize() Project {
	return Project{
		ID:      r.ID.ptr(),
		Name:    r.Name,
		URL:     r.URL,
		Status:  r.Status.ptr(),
		Created: r.DateAdd,
	}
}

// Keyword is one tracked keyword.
type Keyword struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	FolderID *string `json:"folder_id"`
	GroupID  *string `json:"group_id"`
	URL      *string `json:"url"`
	Tags     []any   `json:"tags"`
}

type rawKeyword struct {
	ID       *flexString `json:"id"`
	Name     *string     `json:"name"`
	FolderID *flexString `json:"folder_id"`
	GroupID  *flexString `json:"group_id"`
	URL      *string     `json:"url"`
	Tags     []any       `json:"tags"`
}

func (r rawKeyword) normalize() Keyword {
	tags := r.Tags
	if tags == nil {
		tags = []any{}
	}
	return Keyword{
		ID:       r.ID.ptr(),
		Name:     r.Name,
		FolderID: r.FolderID.ptr(),
		GroupID:  r.GroupID.ptr(),
		URL:      r.URL,
		Tags:     tags,
	}
}

// Competitor is one tracked competitor site.
type Competitor struct {
	ID      *string `json:"id"`
	Name    *string `json:"name"`
	URL     *string `json:"url"`
	Status  *string `json:"status"`
	Enabled *string `json:"enabled"`
}

type rawCompetitor struct {
	ID      *flexString `json:"id"`
	Name    *string     `json:"name"`
	URL     *string     `json:"url"`
	On      *flexString `json:"on"`
	Enabled *flexString `json:"enabled"`
}

func (r rawCompetitor) normalize() Competitor {
	return Competitor{
		ID:      r.ID.ptr(),
		Name:    r.Name,
		URL:     r.URL,
		Status:  r.On.ptr(),
		Enabled: r.Enabled.ptr(),
	}
}

// Folder is one keyword folder.
type Folder struct {
	ID            *string `json:"id"`
	Name          *string `json:"name"`
	ParentID      *string `json:"parent_id"`
	KeywordsCount *string `json:"keywords_count"`
}

type rawFolder struct {
	ID            *flexString `json:"id"`
	Name          *string     `json:"name"`
	ParentID      *flexString `json:"parent_id"`
	CountKeywords *flexString `json:"count_keywords"`
}

func (r rawFolder) normalize() Folder {
	return Folder{
		ID:            r.ID.ptr(),
		Name:          r.Name,
		ParentID:      r.ParentID.ptr(),
		KeywordsCount: r.CountKeywords.ptr(),
	}
}

// Group is one keyword group.
type Group struct {
	ID            *string `json:"id"`
	Name          *string `json:"name"`
	FolderID      *string `json:"folder_id"`
	KeywordsCount *string `json:"keywords_count"`
	Enabled       *string `json:"enabled"`
}

type rawGroup struct {
	ID            *flexString `json:"id"`
	Name          *string     `json:"name"`
	FolderID      *flexString `json:"folder_id"`
	CountKeywords *flexString `json:"count_keywords"`
	On            *flexString `json:"on"`
}

func (r rawGroup) normalize() Group {
	return Group{
		ID:            r.ID.ptr(),
		Name:          r.Name,
		FolderID:      r.FolderID.ptr(),
		KeywordsCount: r.CountKeywords.ptr(),
		Enabled:       r.On.ptr(),
	}
}

// Balance is the account balance summary.
type Balance struct {
	Balance   *string         `json:"balance"`
	Currency  string          `json:"currency"`
	XMLLimits json.RawMessage `json:"xml_limits"`
	Account   json.RawMessage `json:"account_info"`
}

type rawBalance struct {
	Balance   *flexString     `json:"balance"`
	Currency  *string         `json:"currency"`
	XMLLimits json.RawMessage `json:"xml_limits"`
}

// decodeBalance tolerates both shapes the endpoint is known to answer
// with: a single object or a one-element array of objects.
func decodeBalance(raw json.RawMessage) (*Balance, error) {
	var single rawBalance
	if err := json.Unmarshal(raw, &single); err == nil {
		return single.normalize(raw), nil
	}
	var list []rawBalance
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].normalize(raw), nil
	}
	return nil, apierr.New(apierr.KindShape, "unexpected balance shape").
		WithDetails(truncate(string(raw), 500))
}

func (r rawBalance) normalize(raw json.RawMessage) *Balance {
	b := &Balance{
		Balance:   r.Balance.ptr(),
		Currency:  "RUB",
		XMLLimits: r.XMLLimits,
		Account:   raw,
	}
	if r.Currency != nil && *r.Currency != "" {
		b.Currency = *r.Currency
	}
	if b.XMLLimits == nil {
		b.XMLLimits = json.RawMessage(`{}`)
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
