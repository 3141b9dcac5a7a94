package client

import (
	"context"
	"strconv"
)

// GetMapData returns the GeoJSON feature collection for the selected
// geography level, unchanged.
func (c *Client) GetMapData(ctx context.Context, f MapFilters) (Document, error) {
	const route = "/map"
	if err := validateFilters(route, f); err != nil {
		return nil, err
	}
	var doc Document
	if err := c.get(ctx, request{route: route, path: route, params: f.params()}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetTrends returns trend series for the given years.
func (c *Client) GetTrends(ctx context.Context, f TrendFilters) (*TrendResponse, error) {
	const route = "/trends"
	if err := validateFilters(route, f); err != nil {
		return nil, err
	}
	var out TrendResponse
	if err := c.get(ctx, request{route: route, path: route, params: f.params()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInsights returns the general insight document for a year.
func (c *Client) GetInsights(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights", f, f.params())
}

// GetIndependentWave returns the district independent-wave insight.
func (c *Client) GetIndependentWave(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/independent-wave", f, yearOnly(f))
}

// GetCompetitionPressure returns the district competition-pressure insight.
func (c *Client) GetCompetitionPressure(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/competition-pressure", f, yearOnly(f))
}

// GetPartySaturation returns the party saturation versus reach insight.
func (c *Client) GetPartySaturation(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/party-saturation", f, yearOnly(f))
}

// GetAgeGap returns the age-gap insight.
func (c *Client) GetAgeGap(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/age-gap", f, yearOnly(f))
}

// GetGenderGap returns the gender-gap insight.
func (c *Client) GetGenderGap(ctx context.Context, f InsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/gender-gap", f, yearOnly(f))
}

// GetYearInsights returns the composite per-year insight document.
func (c *Client) GetYearInsights(ctx context.Context, f YearInsightFilters) (Document, error) {
	return c.insight(ctx, "/insights/year-insights", f, f.params())
}

// yearOnly drops CompareWith, which only the general insight endpoint reads.
func yearOnly(f InsightFilters) *Params {
	return NewParams().Int("election_year", f.ElectionYear)
}

func (c *Client) insight(ctx context.Context, route string, filters any, params *Params) (Document, error) {
	if err := validateFilters(route, filters); err != nil {
		return nil, err
	}
	var doc Document
	if err := c.get(ctx, request{route: route, path: route, params: params}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CompareCandidates compares up to ten candidates.
func (c *Client) CompareCandidates(ctx context.Context, f CompareFilters) (*CandidateComparison, error) {
	const route = "/compare/candidates"
	if err := validateFilters(route, f); err != nil {
		return nil, err
	}
	var out CandidateComparison
	if err := c.get(ctx, request{route: route, path: route, params: f.params()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCandidates runs candidate autocomplete by name or ID.
func (c *Client) SearchCandidates(ctx context.Context, f SearchFilters) ([]CandidateSearchResult, error) {
	const route = "/compare/candidates/search"
	if err := validateFilters(route, f); err != nil {
		return nil, err
	}
	var out []CandidateSearchResult
	if err := c.get(ctx, request{route: route, path: route, params: f.params()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListElections returns the election years the backend has data for.
func (c *Client) ListElections(ctx context.Context) ([]int, error) {
	const route = "/elections"
	var out []int
	if err := c.get(ctx, request{route: route, path: route}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetElectionSummary returns headline counts for year.
func (c *Client) GetElectionSummary(ctx context.Context, year int) (*ElectionSummary, error) {
	var out ElectionSummary
	if err := c.getYear(ctx, "/elections/{year}/summary", year, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFilterOptions returns the selectable filter values for year.
func (c *Client) GetFilterOptions(ctx context.Context, year int, f FilterOptionsFilters) (*FilterOptions, error) {
	var out FilterOptions
	if err := c.getYear(ctx, "/elections/{year}/filter-options", year, f, f.params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetElectionColumns lists the data columns present for year.
func (c *Client) GetElectionColumns(ctx context.Context, year int) (*ElectionColumns, error) {
	var out ElectionColumns
	if err := c.getYear(ctx, "/elections/{year}/columns", year, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSchema lists the supported data columns.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	const route = "/schema"
	var out Schema
	if err := c.get(ctx, request{route: route, path: route}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCandidates returns candidate records for year.
func (c *Client) GetCandidates(ctx context.Context, year int, f CandidateFilters) ([]CandidateInfo, error) {
	var out []CandidateInfo
	if err := c.getYear(ctx, "/elections/{year}/candidates", year, f, f.params(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProvinceStats returns per-province aggregates for year.
func (c *Client) GetProvinceStats(ctx context.Context, year int) ([]ProvinceStats, error) {
	var out []ProvinceStats
	if err := c.getYear(ctx, "/elections/{year}/provinces", year, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDistrictStats returns per-district aggregates for year.
func (c *Client) GetDistrictStats(ctx context.Context, year int, f DistrictFilters) ([]DistrictStats, error) {
	var out []DistrictStats
	if err := c.getYear(ctx, "/elections/{year}/districts", year, f, f.params(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConstituencyStats returns per-constituency aggregates for year.
func (c *Client) GetConstituencyStats(ctx context.Context, year int, f ConstituencyFilters) ([]ConstituencyStats, error) {
	var out []ConstituencyStats
	if err := c.getYear(ctx, "/elections/{year}/constituencies", year, f, f.params(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompareElections compares one metric across election years.
func (c *Client) CompareElections(ctx context.Context, f LongitudinalFilters) (*LongitudinalComparison, error) {
	const route = "/longitudinal/compare"
	if err := validateFilters(route, f); err != nil {
		return nil, err
	}
	var out LongitudinalComparison
	if err := c.get(ctx, request{route: route, path: route, params: f.params()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports backend liveness. It is served outside the API prefix.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	const route = "/health"
	var out HealthStatus
	if err := c.get(ctx, request{route: route, path: route, noPrefix: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getYear validates the year path segment and any filters, then requests
// route with {year} substituted.
func (c *Client) getYear(ctx context.Context, route string, year int, filters any, params *Params, out any) error {
	if err := validateFilters(route, yearPath{Year: year}); err != nil {
		return err
	}
	if filters != nil {
		if err := validateFilters(route, filters); err != nil {
			return err
		}
	}
	path := "/elections/" + strconv.Itoa(year) + route[len("/elections/{year}"):]
	return c.get(ctx, request{route: route, path: path, params: params}, out)
}
