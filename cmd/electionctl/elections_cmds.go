package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debindra/election-2082-visualization-sub001/internal/client"
)

func newElectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elections",
		Short: "Election years, summaries, candidates and geography statistics",
	}
	cmd.AddCommand(
		newElectionsListCmd(a),
		newElectionsSummaryCmd(a),
		newFilterOptionsCmd(a),
		newColumnsCmd(a),
		newCandidatesCmd(a),
		newProvincesCmd(a),
		newDistrictsCmd(a),
		newConstituenciesCmd(a),
	)
	return cmd
}

func newElectionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List election years with data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			years, err := a.client.ListElections(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(years, func(w io.Writer) {
				for _, y := range years {
					fmt.Fprintln(w, y)
				}
			})
		},
	}
}

func newElectionsSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary YEAR",
		Short: "Headline counts for one election",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			s, err := a.client.GetElectionSummary(cmd.Context(), year)
			if err != nil {
				return err
			}
			return a.render(s, func(w io.Writer) {
				fmt.Fprintf(w, "year\t%d\n", s.Year)
				fmt.Fprintf(w, "candidates\t%d\n", s.TotalCandidates)
				fmt.Fprintf(w, "constituencies\t%d\n", s.TotalConstituencies)
				fmt.Fprintf(w, "districts\t%d\n", s.TotalDistricts)
				fmt.Fprintf(w, "provinces\t%d\n", s.TotalProvinces)
				fmt.Fprintf(w, "parties\t%d\n", len(s.Parties))
			})
		},
	}
}

func newFilterOptionsCmd(a *app) *cobra.Command {
	var f client.FilterOptionsFilters
	cmd := &cobra.Command{
		Use:   "filter-options YEAR",
		Short: "Selectable filter values for one election",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			opts, err := a.client.GetFilterOptions(cmd.Context(), year, f)
			if err != nil {
				return err
			}
			return a.render(opts, func(w io.Writer) {
				fmt.Fprintf(w, "provinces\t%s\n", strings.Join(opts.Provinces, ", "))
				fmt.Fprintf(w, "districts\t%s\n", strings.Join(opts.Districts, ", "))
				fmt.Fprintf(w, "constituencies\t%d\n", len(opts.Constituencies))
				fmt.Fprintf(w, "parties\t%d\n", len(opts.Parties))
				fmt.Fprintf(w, "genders\t%s\n", strings.Join(opts.Genders, ", "))
				fmt.Fprintf(w, "age range\t%d-%d\n", opts.AgeRange.Min, opts.AgeRange.Max)
			})
		},
	}
	cmd.Flags().StringVar(&f.Province, "province", "", "only districts of this province")
	cmd.Flags().StringVar(&f.District, "district", "", "only constituencies of this district")
	return cmd
}

func newColumnsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns YEAR",
		Short: "Columns present in one election's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			cols, err := a.client.GetElectionColumns(cmd.Context(), year)
			if err != nil {
				return err
			}
			return a.render(cols, func(w io.Writer) {
				fmt.Fprintln(w, "COLUMN\tENGLISH\tSAMPLE")
				for _, c := range cols.Columns {
					fmt.Fprintf(w, "%s\t%t\t%s\n", c.Name, c.English, deref(c.Sample))
				}
			})
		},
	}
}

func newCandidatesCmd(a *app) *cobra.Command {
	var f client.CandidateFilters
	cmd := &cobra.Command{
		Use:   "candidates YEAR",
		Short: "Candidate records for one election",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			if f.WinnerOnly, err = optionalBool(cmd, "winners"); err != nil {
				return err
			}
			filters, res := a.builder.CandidateFilters(f)
			a.warnUnresolved(res)
			candidates, err := a.client.GetCandidates(cmd.Context(), year, filters)
			if err != nil {
				return err
			}
			return a.render(candidates, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tPARTY\tCONSTITUENCY\tWINNER")
				for _, c := range candidates {
					winner := ""
					if c.IsWinner != nil && *c.IsWinner {
						winner = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.CandidateID, deref(c.CandidateName), deref(c.Party), deref(c.Constituency), winner)
				}
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.District, "district", "", "district filter")
	flags.StringVar(&f.Constituency, "constituency", "", "constituency filter")
	flags.StringVar(&f.Province, "province", "", "province filter")
	flags.StringVar(&f.Party, "party", "", "party name or alias")
	flags.Bool("winners", false, "only winners")
	flags.IntVar(&f.Limit, "limit", 0, "maximum results (1-1000, server default 100)")
	return cmd
}

func newProvincesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provinces YEAR",
		Short: "Per-province statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			stats, err := a.client.GetProvinceStats(cmd.Context(), year)
			if err != nil {
				return err
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintln(w, "PROVINCE\tCANDIDATES\tCONSTITUENCIES\tDISTRICTS\tPARTIES")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", s.Province, s.TotalCandidates, s.TotalConstituencies, s.TotalDistricts, len(s.Parties))
				}
			})
		},
	}
}

func newDistrictsCmd(a *app) *cobra.Command {
	var f client.DistrictFilters
	cmd := &cobra.Command{
		Use:   "districts YEAR",
		Short: "Per-district statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			stats, err := a.client.GetDistrictStats(cmd.Context(), year, f)
			if err != nil {
				return err
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintln(w, "DISTRICT\tPROVINCE\tCANDIDATES\tCONSTITUENCIES")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.District, deref(s.Province), s.TotalCandidates, s.TotalConstituencies)
				}
			})
		},
	}
	cmd.Flags().StringVar(&f.Province, "province", "", "province filter")
	return cmd
}

func newConstituenciesCmd(a *app) *cobra.Command {
	var f client.ConstituencyFilters
	cmd := &cobra.Command{
		Use:   "constituencies YEAR",
		Short: "Per-constituency statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			stats, err := a.client.GetConstituencyStats(cmd.Context(), year, f)
			if err != nil {
				return err
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintln(w, "CONSTITUENCY\tDISTRICT\tCANDIDATES\tPARTIES")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.Constituency, deref(s.District), strconv.Itoa(s.TotalCandidates), len(s.Parties))
				}
			})
		},
	}
	cmd.Flags().StringVar(&f.District, "district", "", "district filter")
	cmd.Flags().StringVar(&f.Province, "province", "", "province filter")
	return cmd
}
