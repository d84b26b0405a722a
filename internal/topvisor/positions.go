package topvisor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

// notRankingToken is the provider's marker for a keyword outside the
// tracked depth.
const notRankingToken = "--"

// PositionsQuery selects a position-history slice. Zero values take the
// documented defaults: regions ["33"], period "7 days ago".."today",
// limit 100, offset 0.
type PositionsQuery struct {
	ProjectID      int64
	RegionsIndexes []string
	Date1          string
	Date2          string
	Limit          int
	Offset         int
}

func (q *PositionsQuery) applyDefaults() {
	if len(q.RegionsIndexes) == 0 {
		q.RegionsIndexes = []string{"33"}
	}
	q.Date1, q.Date2 = defaultPeriod(q.Date1, q.Date2)
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// PositionRecord is one keyword position on one date in one region,
// flattened from the provider's composite-keyed nesting.
type PositionRecord struct {
	KeywordName     string `json:"keyword_name"`
	Date            string `json:"date"`
	Position        string `json:"position"`
	ProjectID       string `json:"project_id"`
	Region          string `json:"region"`
	PositionNumeric *int   `json:"position_numeric"`
	IsNotRanking    bool   `json:"is_not_ranking"`
}

// positionsResult is the provider's history payload: keywords, each with a
// positionsData map keyed by "<date>:<project_id>:<region>".
type positionsResult struct {
	Keywords []struct {
		Name          string                  `json:"name"`
		PositionsData map[string]positionCell `json:"positionsData"`
	} `json:"keywords"`
}

type positionCell struct {
	Position *flexString `json:"position"`
}

// PositionsHistory fetches and flattens keyword position history. The
// query is mutated to reflect the defaults actually sent.
func (c *Client) PositionsHistory(ctx context.Context, q *PositionsQuery) ([]PositionRecord, error) {
	q.applyDefaults()
	resp, err := c.do(ctx, "positions_2/history", map[string]any{
		"project_id":      q.ProjectID,
		"regions_indexes": q.RegionsIndexes,
		"date1":           q.Date1,
		"date2":           q.Date2,
		"limit":           q.Limit,
		"offset":          q.Offset,
	})
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}

	var result positionsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected positions shape").WithDetails(err.Error())
	}

	records := make([]PositionRecord, 0, len(result.Keywords))
	for _, kw := range result.Keywords {
		name := kw.Name
		if name == "" {
			name = "unknown"
		}
		for key, cell := range kw.PositionsData {
			if cell.Position == nil {
				continue
			}
			date, projectID, region, ok := parsePositionKey(key)
			if !ok {
				continue
			}
			records = append(records, newPositionRecord(name, date, projectID, region, cell.Position.String()))
		}
	}
	return records, nil
}

// parsePositionKey splits a composite "<date>:<project_id>:<region>" key.
// At least 3 components are required; extra components are ignored.
func parsePositionKey(key string) (date, projectID, region string, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func newPositionRecord(keyword, date, projectID, region, position string) PositionRecord {
	rec := PositionRecord{
		KeywordName:  keyword,
		Date:         date,
		Position:     position,
		ProjectID:    projectID,
		Region:       region,
		IsNotRanking: position == notRankingToken,
	}
	if n, err := strconv.Atoi(position); err == nil {
		rec.PositionNumeric = &n
	}
	return rec
}

// DateRange reports the earliest and latest dates present in records, or
// "no_data" when empty. Composite keys sort lexically because the date
// component is ISO formatted.
func DateRange(records []PositionRecord) (start, end string) {
	start, end = "no_data", "no_data"
	for i, rec := range records {
		if i == 0 || rec.Date < start {
			start = rec.Date
		}
		if i == 0 || rec.Date > end {
			end = rec.Date
		}
	}
	return start, end
}
