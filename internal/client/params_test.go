package client

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_SkipsAbsentValues(t *testing.T) {
	p := NewParams().
		String("province", "").
		Int("age_min", 0).
		Bool("independent", nil).
		Ints("years", nil).
		Strings("candidate_ids", []string{" ", ""})

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, "", p.Encode())
}

func TestParams_InsertionOrderAndReplace(t *testing.T) {
	yes := true
	p := NewParams().
		Int("election_year", 2022).
		String("level", "province").
		Bool("independent", &yes).
		String("level", "district")

	assert.Equal(t, "election_year=2022&level=district&independent=true", p.Encode())
	v, ok := p.Get("level")
	assert.True(t, ok)
	assert.Equal(t, "district", v)
}

func TestParams_Encoding(t *testing.T) {
	p := NewParams().
		String("q", "K.P. Sharma Oli").
		Ints("years", []int{2017, 2022}).
		Strings("candidate_ids", []string{"C1", " C2 "}).
		String("a&b", "x=y")

	encoded := p.Encode()
	assert.Equal(t, "q=K.P.+Sharma+Oli&years=2017%2C2022&candidate_ids=C1%2CC2&a%26b=x%3Dy", encoded)

	decoded, err := url.ParseQuery(encoded)
	assert.NoError(t, err)
	assert.Equal(t, "2017,2022", decoded.Get("years"))
	assert.Equal(t, "x=y", decoded.Get("a&b"))
}

func TestParams_NilEncode(t *testing.T) {
	var p *Params
	assert.Equal(t, "", p.Encode())
}
