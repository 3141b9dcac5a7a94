package client

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// Map levels accepted by the backend.
const (
	LevelProvince     = "province"
	LevelDistrict     = "district"
	LevelConstituency = "constituency"
)

// Longitudinal comparison metrics accepted by the backend.
const (
	MetricPartyDistribution = "party_distribution"
	MetricCandidateCount    = "candidate_count"
	MetricConstituencyCount = "constituency_count"
)

// Filter structs use the zero value for "not set": empty strings, zero
// numbers, nil pointers and nil slices never reach the query string.

// MapFilters selects the map aggregation.
type MapFilters struct {
	ElectionYear   int    `validate:"required,min=2000,max=2100"`
	Level          string `validate:"omitempty,oneof=province district constituency"`
	Province       string
	District       string
	Party          string
	Independent    *bool
	AgeMin         int `validate:"omitempty,min=18,max=100"`
	AgeMax         int `validate:"omitempty,min=18,max=100"`
	Gender         string
	EducationLevel string
}

func (f MapFilters) params() *Params {
	return NewParams().
		Int("election_year", f.ElectionYear).
		String("level", f.Level).
		String("province", f.Province).
		String("district", f.District).
		String("party", f.Party).
		Bool("independent", f.Independent).
		Int("age_min", f.AgeMin).
		Int("age_max", f.AgeMax).
		String("gender", f.Gender).
		String("education_level", f.EducationLevel)
}

func (f MapFilters) check() error {
	if f.AgeMin != 0 && f.AgeMax != 0 && f.AgeMin > f.AgeMax {
		return FieldError{Field: "AgeMin", Constraint: "ltefield=AgeMax"}
	}
	return nil
}

// TrendFilters selects years and optionally a single trend metric.
type TrendFilters struct {
	Years  []int `validate:"required,min=1,dive,min=2000,max=2100"`
	Metric string
}

func (f TrendFilters) params() *Params {
	return NewParams().Ints("years", f.Years).String("metric", f.Metric)
}

// InsightFilters selects the year for the insight endpoints. CompareWith is
// only used by GetInsights.
type InsightFilters struct {
	ElectionYear int `validate:"required,min=2000,max=2100"`
	CompareWith  int `validate:"omitempty,min=2000,max=2100"`
}

func (f InsightFilters) params() *Params {
	return NewParams().Int("election_year", f.ElectionYear).Int("compare_with", f.CompareWith)
}

// YearInsightFilters scopes the composite year insight document.
type YearInsightFilters struct {
	ElectionYear int `validate:"required,min=2000,max=2100"`
	Province     string
	District     string
	Party        string
	Gender       string
}

func (f YearInsightFilters) params() *Params {
	return NewParams().
		Int("election_year", f.ElectionYear).
		String("province", f.Province).
		String("district", f.District).
		String("party", f.Party).
		String("gender", f.Gender)
}

// CompareFilters lists the candidates to compare side by side.
type CompareFilters struct {
	CandidateIDs []string `validate:"required,min=1,max=10,dive,required"`
	ElectionYear int      `validate:"omitempty,min=2000,max=2100"`
}

func (f CompareFilters) params() *Params {
	return NewParams().Strings("candidate_ids", f.CandidateIDs).Int("election_year", f.ElectionYear)
}

// SearchFilters drives candidate autocomplete.
type SearchFilters struct {
	Query        string `validate:"required"`
	Limit        int    `validate:"omitempty,min=1,max=10"`
	ElectionYear int    `validate:"omitempty,min=2000,max=2100"`
}

func (f SearchFilters) params() *Params {
	return NewParams().String("q", f.Query).Int("limit", f.Limit).Int("election_year", f.ElectionYear)
}

// FilterOptionsFilters narrows the district and constituency option lists.
type FilterOptionsFilters struct {
	Province string
	District string
}

func (f FilterOptionsFilters) params() *Params {
	return NewParams().String("province", f.Province).String("district", f.District)
}

// CandidateFilters selects candidate records of one election year.
type CandidateFilters struct {
	District     string
	Constituency string
	Province     string
	Party        string
	WinnerOnly   *bool
	Limit        int `validate:"omitempty,min=1,max=1000"`
}

func (f CandidateFilters) params() *Params {
	return NewParams().
		String("district", f.District).
		String("constituency", f.Constituency).
		String("province", f.Province).
		String("party", f.Party).
		Bool("winner_only", f.WinnerOnly).
		Int("limit", f.Limit)
}

// DistrictFilters narrows district statistics to one province.
type DistrictFilters struct {
	Province string
}

func (f DistrictFilters) params() *Params {
	return NewParams().String("province", f.Province)
}

// ConstituencyFilters narrows constituency statistics.
type ConstituencyFilters struct {
	District string
	Province string
}

func (f ConstituencyFilters) params() *Params {
	return NewParams().String("district", f.District).String("province", f.Province)
}

// LongitudinalFilters compares elections on one metric. An empty Metric
// leaves the choice to the server (party distribution).
type LongitudinalFilters struct {
	Years  []int  `validate:"required,min=1,dive,min=2000,max=2100"`
	Metric string `validate:"omitempty,oneof=party_distribution candidate_count constituency_count"`
}

func (f LongitudinalFilters) params() *Params {
	return NewParams().Ints("years", f.Years).String("metric", f.Metric)
}

type yearPath struct {
	Year int `validate:"min=2000,max=2100"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type crossChecker interface {
	check() error
}

// validateFilters runs tag validation and, when present, cross-field checks.
func validateFilters(endpoint string, filters any) error {
	if err := getValidator().Struct(filters); err != nil {
		return newValidationError(endpoint, err)
	}
	if c, ok := filters.(crossChecker); ok {
		if err := c.check(); err != nil {
			return newValidationError(endpoint, err)
		}
	}
	return nil
}
