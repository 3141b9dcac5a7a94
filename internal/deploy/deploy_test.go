package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records commands and fails the ones listed in failOn.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	failOn   map[string]error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := strings.Join(append([]string{name}, args...), " ")
	r.commands = append(r.commands, line)
	if err, ok := r.failOn[line]; ok {
		return []byte("failed"), &CommandError{Command: line, Output: "failed", Err: err}
	}
	return nil, nil
}

func (r *fakeRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

func TestRunbook_RunsInOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	rb := NewRunbook("demo", nil, step("a"), step("b")).Add(step("c"))
	require.NoError(t, rb.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, rb.Steps())
	assert.Equal(t, "demo", rb.Name())
}

func TestRunbook_FailFast(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	rb := NewRunbook("demo", nil,
		Step{Name: "first", Run: func(context.Context) error { ran = append(ran, "first"); return nil }},
		Step{Name: "second", Run: func(context.Context) error { ran = append(ran, "second"); return boom }},
		Step{Name: "third", Run: func(context.Context) error { ran = append(ran, "third"); return nil }},
	)

	err := rb.Execute(context.Background())
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "second", stepErr.Step)
	assert.Equal(t, 1, stepErr.Index)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "demo: step 2 (second) failed: boom", err.Error())
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestRunbook_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	rb := NewRunbook("demo", nil, Step{Name: "never", Run: func(context.Context) error { called = true; return nil }})
	err := rb.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func testSite(t *testing.T) NginxSite {
	dir := t.TempDir()
	return NginxSite{
		Domain:     "election.example.org",
		WWW:        true,
		StaticRoot: "/var/www/election/dist",
		AppPort:    8000,
		SitesDir:   filepath.Join(dir, "sites-available"),
		EnabledDir: filepath.Join(dir, "sites-enabled"),
	}
}

func TestNginxSite_RenderHTTP(t *testing.T) {
	out, err := testSite(t).Render()
	require.NoError(t, err)
	conf := string(out)

	assert.Contains(t, conf, "server_name election.example.org www.election.example.org;")
	assert.Contains(t, conf, "root /var/www/election/dist;")
	assert.Contains(t, conf, "proxy_pass http://127.0.0.1:8000;")
	assert.Contains(t, conf, "location /.well-known/acme-challenge/")
	assert.Contains(t, conf, "try_files $uri $uri/ /index.html;")
	assert.NotContains(t, conf, "ssl_certificate")
	assert.Equal(t, strings.Count(conf, "{"), strings.Count(conf, "}"))
}

func TestNginxSite_RenderTLS(t *testing.T) {
	site := testSite(t)
	site.TLS = true
	site.WWW = false

	out, err := site.Render()
	require.NoError(t, err)
	conf := string(out)

	assert.Contains(t, conf, "return 301 https://$host$request_uri;")
	assert.Contains(t, conf, "listen 443 ssl http2;")
	assert.Contains(t, conf, "ssl_certificate     /etc/letsencrypt/live/election.example.org/fullchain.pem;")
	assert.Contains(t, conf, "Strict-Transport-Security")
	assert.Contains(t, conf, `add_header X-Frame-Options "DENY" always;`)
	assert.Equal(t, 2, strings.Count(conf, "server {"))
}

func TestNginxSite_RenderInvalid(t *testing.T) {
	site := testSite(t)
	site.Domain = "bad domain;"
	site.AppPort = 0

	_, err := site.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid domain")
	assert.Contains(t, err.Error(), "invalid app port 0")
}

func TestNginxSteps_Success(t *testing.T) {
	site := testSite(t)
	runner := &fakeRunner{}

	err := NewRunbook("nginx", nil, NginxSteps(runner, site)...).Execute(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(site.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "server_name election.example.org")

	target, err := os.Readlink(site.EnabledPath())
	require.NoError(t, err)
	assert.Equal(t, site.ConfigPath(), target)

	assert.Equal(t, []string{"nginx -t", "systemctl reload nginx"}, runner.ran())

	// Running again replaces the existing link.
	require.NoError(t, NewRunbook("nginx", nil, NginxSteps(runner, site)...).Execute(context.Background()))
}

func TestNginxSteps_InvalidConfigAbortsBeforeReload(t *testing.T) {
	site := testSite(t)
	runner := &fakeRunner{failOn: map[string]error{"nginx -t": errors.New("exit status 1")}}

	err := NewRunbook("nginx", nil, NginxSteps(runner, site)...).Execute(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "test nginx config", stepErr.Step)
	assert.Equal(t, []string{"nginx -t"}, runner.ran())

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "nginx -t: exit status 1: failed", cmdErr.Error())
}

func TestCertificateSteps(t *testing.T) {
	site := testSite(t)
	runner := &fakeRunner{}

	err := NewRunbook("certs", nil, CertificateSteps(runner, site, "ops@example.org")...).Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"certbot certonly --nginx --non-interactive --agree-tos -m ops@example.org -d election.example.org -d www.election.example.org",
		"nginx -t",
		"systemctl reload nginx",
	}, runner.ran())

	content, err := os.ReadFile(site.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "listen 443 ssl")
}

func TestCertificateSteps_RequiresEmail(t *testing.T) {
	runner := &fakeRunner{}
	err := NewRunbook("certs", nil, CertificateSteps(runner, testSite(t), "")...).Execute(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "check email", stepErr.Step)
	assert.Empty(t, runner.ran())
}

func TestFirewallSteps(t *testing.T) {
	runner := &fakeRunner{failOn: map[string]error{"ufw allow Nginx Full": errors.New("exit status 1")}}
	err := NewRunbook("firewall", nil, FirewallSteps(runner)...).Execute(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"ufw allow OpenSSH", "ufw allow Nginx Full"}, runner.ran())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			var out strings.Builder
			got, err := Confirm(strings.NewReader(tt.input), &out, "Reload nginx?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Reload nginx? [y/N]: ", out.String())
		})
	}
}
