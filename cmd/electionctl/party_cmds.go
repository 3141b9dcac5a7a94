package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debindra/election-2082-visualization-sub001/internal/query"
)

func newPartyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Resolve party names and aliases",
	}
	cmd.AddCommand(
		newPartyNormalizeCmd(a),
		newPartyInfoCmd(a),
		newPartyListCmd(a),
		newPartyContextCmd(a),
		newPartySQLCmd(a),
	)
	return cmd
}

func newPartyNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "normalize NAME...",
		Short:   "Print the official name for each party name or alias",
		Example: `  electionctl party normalize rasapa congress "maoist centre"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Input    string `json:"input"`
				Official string `json:"official"`
				Resolved bool   `json:"resolved"`
			}
			rows := make([]row, len(args))
			for i, in := range args {
				official, ok := a.parties.Lookup(in)
				if !ok {
					official = in
				}
				rows[i] = row{Input: in, Official: official, Resolved: ok}
			}
			return a.render(rows, func(w io.Writer) {
				for _, r := range rows {
					fmt.Fprintln(w, r.Official)
				}
			})
		},
	}
}

func newPartyInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Show the full alias entry matching a party name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := a.parties.Resolve(args[0])
			if !ok {
				return fmt.Errorf("no party matches %q", args[0])
			}
			return a.render(entry, func(w io.Writer) {
				fmt.Fprintf(w, "key\t%s\n", entry.Key)
				fmt.Fprintf(w, "official\t%s\n", entry.CanonicalName)
				fmt.Fprintf(w, "english\t%s\n", entry.DisplayName)
				fmt.Fprintf(w, "symbol\t%s\n", entry.Symbol)
				fmt.Fprintf(w, "aliases\t%s\n", strings.Join(entry.Aliases, ", "))
			})
		},
	}
}

func newPartyListCmd(a *app) *cobra.Command {
	var names bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the alias table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if names {
				all := a.parties.AllNames()
				return a.render(all, func(w io.Writer) {
					for _, n := range all {
						fmt.Fprintln(w, n)
					}
				})
			}
			entries := a.parties.Entries()
			return a.render(entries, func(w io.Writer) {
				fmt.Fprintln(w, "ENGLISH\tOFFICIAL\tALIASES")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%d\n", e.DisplayName, e.CanonicalName, len(e.Aliases))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&names, "names", false, "print every recognized name instead of the entries")
	return cmd
}

func newPartyContextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the party mapping as plain text for query generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(a.stdout, a.parties.MappingContext())
			return err
		},
	}
}

func newPartySQLCmd(a *app) *cobra.Command {
	var (
		q     query.CandidateQuery
		limit int
	)
	cmd := &cobra.Command{
		Use:     "sql",
		Short:   "Render a parameterized candidate query",
		Example: `  electionctl party sql --party uml --district Jhapa --limit 20`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlStr, args, res, err := a.builder.SelectCandidates(q, limit)
			if err != nil {
				return err
			}
			a.warnUnresolved(res)
			out := struct {
				SQL  string `json:"sql"`
				Args []any  `json:"args"`
			}{sqlStr, args}
			return a.render(out, func(w io.Writer) {
				fmt.Fprintln(w, sqlStr)
				for i, arg := range args {
					fmt.Fprintf(w, "  $%d\t%v\n", i+1, arg)
				}
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&q.Party, "party", "", "party name or alias")
	flags.StringVar(&q.District, "district", "", "district (substring)")
	flags.StringVar(&q.Province, "province", "", "province (substring)")
	flags.StringVar(&q.Gender, "gender", "", "gender")
	flags.IntVar(&q.AreaNo, "area", 0, "constituency number within the district")
	flags.StringVar(&q.Name, "name", "", "candidate name (substring)")
	flags.IntVar(&limit, "limit", 0, "maximum rows")
	return cmd
}
