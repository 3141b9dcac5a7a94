package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Candidate table columns.
const (
	TableCandidates   = "candidates"
	ColParty          = "political_party"
	ColPartyEnglish   = "political_party_in_english"
	ColDistrict       = "district"
	ColDistrictEn     = "district_in_english"
	ColState          = "state"
	ColStateEn        = "state_in_english"
	ColGender         = "gender"
	ColAreaNo         = "area_no"
	ColCandidateName   = "candidate_full_name"
	ColCandidateNameEn = "candidate_full_name_in_english"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// CandidateQuery is a structured filter over the candidates table. Empty
// fields are ignored.
type CandidateQuery struct {
	Party    string
	District string
	Province string
	Gender   string
	AreaNo   int
	Name     string
}

// Predicate renders q as a parameterized WHERE clause body. Every user
// value is a bound argument. A resolved party is matched exactly on its
// canonical name; an unresolved one falls back to an escaped substring
// match on both party columns. Returns an empty string when q has no
// conditions.
func (b *Builder) Predicate(q CandidateQuery) (string, []any, error) {
	conds, _ := b.conditions(q)
	if len(conds) == 0 {
		return "", nil, nil
	}
	return conds.ToSql()
}

// SelectCandidates builds a full SELECT over the candidates table.
// limit <= 0 means no limit.
func (b *Builder) SelectCandidates(q CandidateQuery, limit int) (string, []any, Result, error) {
	conds, res := b.conditions(q)
	query := psql.Select("*").From(TableCandidates)
	if len(conds) > 0 {
		query = query.Where(conds)
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	sqlStr, args, err := query.ToSql()
	return sqlStr, args, res, err
}

func (b *Builder) conditions(q CandidateQuery) (sq.And, Result) {
	var conds sq.And

	res := b.resolveParty(q.Party)
	switch {
	case res.Party == "":
	case res.Unresolved:
		conds = append(conds, likeAny(res.Party, ColParty, ColPartyEnglish))
	default:
		conds = append(conds, sq.Eq{ColParty: res.Party})
	}

	if v := strings.TrimSpace(q.District); v != "" {
		conds = append(conds, likeAny(v, ColDistrict, ColDistrictEn))
	}
	if v := strings.TrimSpace(q.Province); v != "" {
		conds = append(conds, likeAny(v, ColState, ColStateEn))
	}
	if v := strings.TrimSpace(q.Gender); v != "" {
		conds = append(conds, sq.Eq{ColGender: v})
	}
	if q.AreaNo > 0 {
		conds = append(conds, sq.Eq{ColAreaNo: q.AreaNo})
	}
	if v := strings.TrimSpace(q.Name); v != "" {
		conds = append(conds, likeAny(v, ColCandidateName, ColCandidateNameEn))
	}
	return conds, res
}

// likeAny matches value as a literal substring of any of the columns.
func likeAny(value string, columns ...string) sq.Sqlizer {
	pattern := "%" + EscapeLike(value) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.Expr(col+` LIKE ? ESCAPE '\'`, pattern))
	}
	return or
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so value matches literally under
// ESCAPE '\'.
func EscapeLike(value string) string {
	return likeEscaper.Replace(value)
}
