package client

import "encoding/json"

// Document is a response body passed through exactly as the server sent it.
// The map GeoJSON and the analytic insight blocks use it; their shapes are
// owned by the backend and consumed by rendering code directly.
type Document = json.RawMessage

// CandidateInfo is a candidate record. Everything but the ID is optional in
// the source data.
type CandidateInfo struct {
	CandidateID                  string   `json:"candidate_id"`
	CandidateName                *string  `json:"candidate_name,omitempty"`
	Party                        *string  `json:"party,omitempty"`
	IsIndependent                *bool    `json:"is_independent,omitempty"`
	District                     *string  `json:"district,omitempty"`
	Constituency                 *string  `json:"constituency,omitempty"`
	ElectionAreaDisplay          *string  `json:"election_area_display,omitempty"`
	Province                     *string  `json:"province,omitempty"`
	ElectionYear                 *int     `json:"election_year,omitempty"`
	Age                          *float64 `json:"age,omitempty"`
	Gender                       *string  `json:"gender,omitempty"`
	EducationLevel               *string  `json:"education_level,omitempty"`
	BirthDistrict                *string  `json:"birth_district,omitempty"`
	Symbol                       *string  `json:"symbol,omitempty"`
	ImageURL                     *string  `json:"image_url,omitempty"`
	VotesReceived                *float64 `json:"votes_received,omitempty"`
	VotesPercentage              *float64 `json:"votes_percentage,omitempty"`
	IsWinner                     *bool    `json:"is_winner,omitempty"`
	Margin                       *float64 `json:"margin,omitempty"`
	CandidateNameEn              *string  `json:"candidate_name_en,omitempty"`
	DistrictEn                   *string  `json:"district_en,omitempty"`
	BirthPlaceEn                 *string  `json:"birth_place_en,omitempty"`
	PartyEn                      *string  `json:"party_en,omitempty"`
	ProvinceEn                   *string  `json:"province_en,omitempty"`
	ProvinceNp                   *string  `json:"province_np,omitempty"`
	VoteShareInRace              *float64 `json:"vote_share_in_race,omitempty"`
	PartyStrengthInDistrict      *float64 `json:"party_strength_in_district,omitempty"`
	PartyIncumbentInConstituency *bool    `json:"party_incumbent_in_constituency,omitempty"`
}

// CandidateSearchResult is one autocomplete hit.
type CandidateSearchResult struct {
	CandidateID     string  `json:"candidate_id"`
	CandidateName   *string `json:"candidate_name,omitempty"`
	Party           *string `json:"party,omitempty"`
	ElectionYear    *int    `json:"election_year,omitempty"`
	CandidateNameEn *string `json:"candidate_name_en,omitempty"`
	DistrictEn      *string `json:"district_en,omitempty"`
	BirthPlaceEn    *string `json:"birth_place_en,omitempty"`
	PartyEn         *string `json:"party_en,omitempty"`
	ProvinceEn      *string `json:"province_en,omitempty"`
	ProvinceNp      *string `json:"province_np,omitempty"`
}

// CandidateComparison is the side-by-side comparison keyed by candidate ID.
type CandidateComparison struct {
	Candidates        map[string]CandidateInfo   `json:"candidates"`
	ComparisonMetrics map[string]json.RawMessage `json:"comparison_metrics"`
}

// TrendDataPoint is one year of a trend series.
type TrendDataPoint struct {
	Year     int                        `json:"year"`
	Value    float64                    `json:"value"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// Trend is a single metric across years.
type Trend struct {
	Metric     string                     `json:"metric"`
	DataPoints []TrendDataPoint           `json:"data_points"`
	Summary    map[string]json.RawMessage `json:"summary,omitempty"`
}

// TrendResponse maps metric names to their series.
type TrendResponse struct {
	Trends map[string]Trend `json:"trends"`
}

// ElectionSummary holds headline counts for one election year.
type ElectionSummary struct {
	Year                int             `json:"year"`
	TotalCandidates     int             `json:"total_candidates"`
	TotalConstituencies int             `json:"total_constituencies"`
	TotalDistricts      int             `json:"total_districts"`
	TotalProvinces      int             `json:"total_provinces"`
	Parties             []string        `json:"parties"`
	Validation          json.RawMessage `json:"validation,omitempty"`
}

// AgeRange is the observed candidate age span.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FilterOptions lists selectable filter values for one election year.
type FilterOptions struct {
	Provinces       []string `json:"provinces"`
	Districts       []string `json:"districts"`
	Constituencies  []string `json:"constituencies"`
	Parties         []string `json:"parties"`
	Genders         []string `json:"genders"`
	EducationLevels []string `json:"education_levels"`
	AgeRange        AgeRange `json:"age_range"`
}

// Column describes one data column with a sample from the first row.
type Column struct {
	Name    string  `json:"name"`
	Sample  *string `json:"sample"`
	English bool    `json:"english"`
}

// ElectionColumns lists the columns present in an election's data file.
type ElectionColumns struct {
	Year                  int                `json:"year"`
	Columns               []Column           `json:"columns"`
	FirstRow              map[string]*string `json:"first_row"`
	EnglishColumnsPresent []string           `json:"english_columns_present"`
}

// SchemaColumn names a supported column.
type SchemaColumn struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CSVExamples []string `json:"csv_examples,omitempty"`
}

// Schema lists required, optional and English data columns.
type Schema struct {
	Required []SchemaColumn `json:"required"`
	Optional []SchemaColumn `json:"optional"`
	English  []SchemaColumn `json:"english"`
}

// ProvinceStats aggregates one province.
type ProvinceStats struct {
	Province            string   `json:"province"`
	TotalCandidates     int      `json:"total_candidates"`
	TotalConstituencies int      `json:"total_constituencies"`
	TotalDistricts      int      `json:"total_districts"`
	Parties             []string `json:"parties"`
}

// DistrictStats aggregates one district.
type DistrictStats struct {
	District            string   `json:"district"`
	Province            *string  `json:"province"`
	TotalCandidates     int      `json:"total_candidates"`
	TotalConstituencies int      `json:"total_constituencies"`
	Parties             []string `json:"parties"`
}

// ConstituencyStats aggregates one constituency. Winner is the raw winning
// candidate row when results are available.
type ConstituencyStats struct {
	Constituency    string          `json:"constituency"`
	District        *string         `json:"district"`
	Province        *string         `json:"province"`
	TotalCandidates int             `json:"total_candidates"`
	Parties         []string        `json:"parties"`
	Winner          json.RawMessage `json:"winner,omitempty"`
}

// LongitudinalComparison is a metric compared across years. Comparison is
// keyed by year; values are counts or per-party count maps depending on the
// metric.
type LongitudinalComparison struct {
	Metric     string                     `json:"metric"`
	Comparison map[string]json.RawMessage `json:"comparison"`
}

// HealthStatus is the backend liveness report.
type HealthStatus struct {
	Status             string `json:"status"`
	AvailableElections []int  `json:"available_elections"`
}
