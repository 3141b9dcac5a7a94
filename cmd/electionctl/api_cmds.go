package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debindra/election-2082-visualization-sub001/internal/client"
)

func parseYear(arg string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", arg)
	}
	return year, nil
}

// optionalBool returns nil unless the flag was set explicitly.
func optionalBool(cmd *cobra.Command, name string) (*bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newMapCmd(a *app) *cobra.Command {
	var f client.MapFilters
	cmd := &cobra.Command{
		Use:     "map",
		Short:   "Fetch map data (GeoJSON) for a geography level",
		Example: "  electionctl map --year 2022 --level district --district Kathmandu\n  electionctl map --year 2022 --party rsp --independent=false",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if f.Independent, err = optionalBool(cmd, "independent"); err != nil {
				return err
			}
			filters, res := a.builder.MapFilters(f)
			a.warnUnresolved(res)
			doc, err := a.client.GetMapData(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return a.printDocument(doc)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.ElectionYear, "year", 0, "election year (required)")
	flags.StringVar(&f.Level, "level", "", "province, district or constituency")
	flags.StringVar(&f.Province, "province", "", "province filter")
	flags.StringVar(&f.District, "district", "", "district filter")
	flags.StringVar(&f.Party, "party", "", "party name or alias")
	flags.Bool("independent", false, "only independent (true) or only party (false) candidates")
	flags.IntVar(&f.AgeMin, "age-min", 0, "minimum candidate age")
	flags.IntVar(&f.AgeMax, "age-max", 0, "maximum candidate age")
	flags.StringVar(&f.Gender, "gender", "", "gender filter")
	flags.StringVar(&f.EducationLevel, "education", "", "education level filter")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newTrendsCmd(a *app) *cobra.Command {
	var f client.TrendFilters
	cmd := &cobra.Command{
		Use:     "trends",
		Short:   "Fetch trend series across election years",
		Example: `  electionctl trends --years 2017,2022 --metric independent_shift`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := a.client.GetTrends(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(resp, func(w io.Writer) {
				fmt.Fprintln(w, "METRIC\tYEAR\tVALUE")
				for name, trend := range resp.Trends {
					for _, dp := range trend.DataPoints {
						fmt.Fprintf(w, "%s\t%d\t%.2f\n", name, dp.Year, dp.Value)
					}
				}
			})
		},
	}
	cmd.Flags().IntSliceVar(&f.Years, "years", nil, "comma-separated election years (required)")
	cmd.Flags().StringVar(&f.Metric, "metric", "", "single metric, e.g. independent_shift")
	_ = cmd.MarkFlagRequired("years")
	return cmd
}

func newInsightsCmd(a *app) *cobra.Command {
	var (
		f  client.InsightFilters
		yf client.YearInsightFilters
	)
	kinds := []string{"independent-wave", "competition-pressure", "party-saturation", "age-gap", "gender-gap", "year"}
	cmd := &cobra.Command{
		Use:       "insights [" + strings.Join(kinds, "|") + "]",
		Short:     "Fetch insight documents for an election year",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}

			var (
				doc client.Document
				err error
			)
			switch kind {
			case "":
				doc, err = a.client.GetInsights(ctx, f)
			case "independent-wave":
				doc, err = a.client.GetIndependentWave(ctx, f)
			case "competition-pressure":
				doc, err = a.client.GetCompetitionPressure(ctx, f)
			case "party-saturation":
				doc, err = a.client.GetPartySaturation(ctx, f)
			case "age-gap":
				doc, err = a.client.GetAgeGap(ctx, f)
			case "gender-gap":
				doc, err = a.client.GetGenderGap(ctx, f)
			case "year":
				yf.ElectionYear = f.ElectionYear
				filters, res := a.builder.YearInsightFilters(yf)
				a.warnUnresolved(res)
				doc, err = a.client.GetYearInsights(ctx, filters)
			default:
				return fmt.Errorf("unknown insight %q (want one of %s)", kind, strings.Join(kinds, ", "))
			}
			if err != nil {
				return err
			}
			return a.printDocument(doc)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.ElectionYear, "year", 0, "election year (required)")
	flags.IntVar(&f.CompareWith, "compare-with", 0, "year to compare with (general insights only)")
	flags.StringVar(&yf.Province, "province", "", "province filter (year insights only)")
	flags.StringVar(&yf.District, "district", "", "district filter (year insights only)")
	flags.StringVar(&yf.Party, "party", "", "party name or alias (year insights only)")
	flags.StringVar(&yf.Gender, "gender", "", "gender filter (year insights only)")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var f client.CompareFilters
	cmd := &cobra.Command{
		Use:   "compare CANDIDATE_ID...",
		Short: "Compare up to ten candidates side by side",
		Args:  cobra.RangeArgs(1, 10),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.CandidateIDs = args
			resp, err := a.client.CompareCandidates(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(resp, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tPARTY\tDISTRICT")
				for _, id := range args {
					c, ok := resp.Candidates[id]
					if !ok {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.CandidateID, deref(c.CandidateName), deref(c.Party), deref(c.District))
				}
			})
		},
	}
	cmd.Flags().IntVar(&f.ElectionYear, "year", 0, "restrict to one election year")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var f client.SearchFilters
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search candidates by name or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Query = args[0]
			results, err := a.client.SearchCandidates(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(results, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tNAME (EN)\tPARTY\tYEAR")
				for _, r := range results {
					year := ""
					if r.ElectionYear != nil {
						year = strconv.Itoa(*r.ElectionYear)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.CandidateID, deref(r.CandidateName), deref(r.CandidateNameEn), deref(r.Party), year)
				}
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum results (1-10, server default 5)")
	cmd.Flags().IntVar(&f.ElectionYear, "year", 0, "restrict to one election year")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the supported data columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := a.client.GetSchema(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(schema, func(w io.Writer) {
				fmt.Fprintln(w, "KIND\tCOLUMN\tDESCRIPTION")
				for _, c := range schema.Required {
					fmt.Fprintf(w, "required\t%s\t%s\n", c.Name, c.Description)
				}
				for _, c := range schema.Optional {
					fmt.Fprintf(w, "optional\t%s\t%s\n", c.Name, c.Description)
				}
				for _, c := range schema.English {
					fmt.Fprintf(w, "english\t%s\t%s\n", c.Name, c.Description)
				}
			})
		},
	}
}

func newLongitudinalCmd(a *app) *cobra.Command {
	var f client.LongitudinalFilters
	cmd := &cobra.Command{
		Use:   "longitudinal",
		Short: "Compare a metric across election years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := a.client.CompareElections(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(resp, func(w io.Writer) {
				fmt.Fprintf(w, "YEAR\t%s\n", strings.ToUpper(resp.Metric))
				for year, v := range resp.Comparison {
					fmt.Fprintf(w, "%s\t%s\n", year, string(v))
				}
			})
		},
	}
	cmd.Flags().IntSliceVar(&f.Years, "years", nil, "comma-separated election years (required)")
	cmd.Flags().StringVar(&f.Metric, "metric", "", "party_distribution, candidate_count or constituency_count")
	_ = cmd.MarkFlagRequired("years")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(status, func(w io.Writer) {
				years := make([]string, len(status.AvailableElections))
				for i, y := range status.AvailableElections {
					years[i] = strconv.Itoa(y)
				}
				fmt.Fprintf(w, "status\t%s\nelections\t%s\n", status.Status, strings.Join(years, ", "))
			})
		},
	}
}
