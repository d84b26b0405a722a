package topvisor

import (
	"context"
	"encoding/csv"
	"strings"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

// Region is one searcher/region row from the export endpoint. Column
// order is fixed by the provider.
type Region struct {
	SearchEngineKey string `json:"search_engine_key"`
	Name            string `json:"name"`
	CountryCode     string `json:"country_code"`
	Language        string `json:"language"`
	RegionDevice    string `json:"region_device"`
	Depth           string `json:"depth"`
}

const regionColumns = 6

// Regions returns the project's searchers and regions. This endpoint does
// not support JSON output, so the body is semicolon-delimited CSV text.
func (c *Client) Regions(ctx context.Context, projectID int64) ([]Region, error) {
	body, err := c.doRaw(ctx, "positions_2/searchers_regions/export", map[string]any{
		"project_id": projectID,
	})
	if err != nil {
		return nil, err
	}
	return parseRegionsCSV(string(body))
}

func parseRegionsCSV(text string) ([]Region, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected regions CSV").WithDetails(err.Error())
	}

	regions := make([]Region, 0, len(rows))
	for _, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < regionColumns {
			return nil, apierr.Newf(apierr.KindShape, "regions CSV row has %d columns, want %d", len(row), regionColumns)
		}
		regions = append(regions, Region{
			SearchEngineKey: row[0],
			Name:            row[1],
			CountryCode:     row[2],
			Language:        row[3],
			RegionDevice:    row[4],
			Depth:           row[5],
		})
	}
	return regions, nil
}
