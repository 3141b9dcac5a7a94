package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a fake election API that records the requests it receives.
type backend struct {
	mu       sync.Mutex
	requests []*url.URL
	status   int
	body     string
}

func newBackend(t *testing.T, status int, body string) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.URL)
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.status)
		_, _ = w.Write([]byte(b.body))
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) last(t *testing.T) *url.URL {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests, "backend received no request")
	return b.requests[len(b.requests)-1]
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// runCLI executes the CLI in-process with the given args and stdin.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestCLI_Version(t *testing.T) {
	stdout, _, code := runCLI(t, "", "version")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "electionctl dev")
	assert.Contains(t, stdout, "Git commit:")
}

func TestCLI_Help(t *testing.T) {
	stdout, _, code := runCLI(t, "", "--help")

	assert.Equal(t, 0, code)
	for _, sub := range []string{"map", "trends", "insights", "compare", "elections", "party", "deploy", "doctor"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestCLI_Map(t *testing.T) {
	b, srv := newBackend(t, http.StatusOK, `{"type":"FeatureCollection","features":[]}`)

	stdout, stderr, code := runCLI(t, "", "--base-url", srv.URL,
		"map", "--year", "2022", "--level", "district", "--district", "Kathmandu")

	require.Equal(t, 0, code, stderr)
	got := b.last(t)
	assert.Equal(t, "/api/v1/map", got.Path)
	assert.Equal(t, "election_year=2022&level=district&district=Kathmandu", got.RawQuery)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "FeatureCollection", doc["type"])
}

func TestCLI_MapNormalizesParty(t *testing.T) {
	b, srv := newBackend(t, http.StatusOK, `{}`)

	_, stderr, code := runCLI(t, "", "--base-url", srv.URL,
		"map", "--year", "2022", "--party", "rasapa")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "राष्ट्रिय स्वतन्त्र पार्टी", b.last(t).Query().Get("party"))
	assert.NotContains(t, stderr, "note:")
}

func TestCLI_MapUnknownPartyForwarded(t *testing.T) {
	b, srv := newBackend(t, http.StatusOK, `{}`)

	_, stderr, code := runCLI(t, "", "--base-url", srv.URL,
		"map", "--year", "2022", "--party", "xyz-unknown-party")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "xyz-unknown-party", b.last(t).Query().Get("party"))
	assert.Contains(t, stderr, `note: party "xyz-unknown-party" is not in the alias table`)
}

func TestCLI_APIErrorReportedOnce(t *testing.T) {
	_, srv := newBackend(t, http.StatusBadRequest, `{"detail":"Invalid year"}`)

	stdout, stderr, code := runCLI(t, "", "--base-url", srv.URL,
		"map", "--year", "2022")

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, 1, strings.Count(stderr, "error: Invalid year"), stderr)
	assert.Equal(t, 1, strings.Count(stderr, "error:"), stderr)
}

func TestCLI_ValidationFailureSendsNothing(t *testing.T) {
	b, srv := newBackend(t, http.StatusOK, `{}`)

	_, stderr, code := runCLI(t, "", "--base-url", srv.URL, "elections", "summary", "1990")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: invalid filters")
	assert.Zero(t, b.count())
}

func TestCLI_InvalidOutputFormat(t *testing.T) {
	_, stderr, code := runCLI(t, "", "--output", "yaml", "party", "list")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown output format "yaml"`)
}

func TestCLI_PartyNormalize(t *testing.T) {
	stdout, stderr, code := runCLI(t, "", "--output", "text", "party", "normalize", "rasapa", "nobody-party")

	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "राष्ट्रिय स्वतन्त्र पार्टी", strings.TrimSpace(lines[0]))
	assert.Equal(t, "nobody-party", strings.TrimSpace(lines[1]))
}

func TestCLI_PartySQL(t *testing.T) {
	stdout, stderr, code := runCLI(t, "", "party", "sql", "--party", "rsp", "--gender", "Female", "--limit", "25")

	require.Equal(t, 0, code, stderr)
	var out struct {
		SQL  string `json:"sql"`
		Args []any  `json:"args"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "SELECT * FROM candidates WHERE (political_party = ? AND gender = ?) LIMIT 25", out.SQL)
	assert.Equal(t, []any{"राष्ट्रिय स्वतन्त्र पार्टी", "Female"}, out.Args)
}

func TestCLI_DeployDryRun(t *testing.T) {
	stdout, stderr, code := runCLI(t, "", "deploy", "nginx", "--domain", "example.com", "--dry-run")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "nginx site:\n"+
		"  1. write site config\n"+
		"  2. enable site\n"+
		"  3. test nginx config\n"+
		"  4. reload nginx\n", stdout)
}

func TestCLI_DeployCertsDryRunListsIssuance(t *testing.T) {
	stdout, stderr, code := runCLI(t, "", "deploy", "certs", "--domain", "example.com", "--email", "ops@example.com", "--dry-run")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "1. check email")
	assert.Contains(t, stdout, "2. issue certificate")
}

func TestCLI_DeployDeclined(t *testing.T) {
	stdout, stderr, code := runCLI(t, "n\n", "deploy", "firewall")

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Proceed? [y/N]: ")
	assert.Contains(t, stderr, "error: aborted")
}

func TestCLI_DeployRequiresDomain(t *testing.T) {
	_, stderr, code := runCLI(t, "", "deploy", "nginx", "--dry-run")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no domain")
}
