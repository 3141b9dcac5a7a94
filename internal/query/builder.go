// Package query turns raw user filters into backend requests and SQL
// predicates. Party names are normalized to their canonical identifier
// before they leave the process; anything else is passed through.
package query

import (
	"strings"

	"go.uber.org/zap"

	"github.com/debindra/election-2082-visualization-sub001/internal/client"
	"github.com/debindra/election-2082-visualization-sub001/internal/party"
)

// PartyResolver maps free-text party names to canonical identifiers.
type PartyResolver interface {
	Lookup(input string) (string, bool)
}

// Result reports what happened to the party filter.
type Result struct {
	Input      string // party as given by the user
	Party      string // value forwarded to the backend
	Unresolved bool   // true when Input matched no known party
}

// Builder normalizes filters. It holds no mutable state.
type Builder struct {
	parties PartyResolver
	logger  *zap.Logger
}

// NewBuilder creates a Builder. A nil resolver uses the embedded party
// table; a nil logger discards output.
func NewBuilder(parties PartyResolver, logger *zap.Logger) *Builder {
	if parties == nil {
		parties = party.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{parties: parties, logger: logger}
}

// resolveParty returns the canonical party for input. Blank input resolves
// to an empty filter.
func (b *Builder) resolveParty(input string) Result {
	if strings.TrimSpace(input) == "" {
		return Result{}
	}
	if canonical, ok := b.parties.Lookup(input); ok {
		return Result{Input: input, Party: canonical}
	}
	b.logger.Debug("party not recognized, forwarding as given", zap.String("party", input))
	return Result{Input: input, Party: input, Unresolved: true}
}

// MapFilters normalizes the party of a map request.
func (b *Builder) MapFilters(f client.MapFilters) (client.MapFilters, Result) {
	res := b.resolveParty(f.Party)
	f.Party = res.Party
	return f, res
}

// YearInsightFilters normalizes the party of a year insight request.
func (b *Builder) YearInsightFilters(f client.YearInsightFilters) (client.YearInsightFilters, Result) {
	res := b.resolveParty(f.Party)
	f.Party = res.Party
	return f, res
}

// CandidateFilters normalizes the party of a candidate listing request.
func (b *Builder) CandidateFilters(f client.CandidateFilters) (client.CandidateFilters, Result) {
	res := b.resolveParty(f.Party)
	f.Party = res.Party
	return f, res
}
