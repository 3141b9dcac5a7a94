package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const siteTemplate = `# Managed by electionctl. Changes are overwritten on the next deploy.
{{- if .TLS}}
server {
    listen 80;
    listen [::]:80;
    server_name {{.ServerNames}};
    return 301 https://$host$request_uri;
}

server {
    listen 443 ssl http2;
    listen [::]:443 ssl http2;
    server_name {{.ServerNames}};

    ssl_certificate     {{.CertDir}}/fullchain.pem;
    ssl_certificate_key {{.CertDir}}/privkey.pem;
    ssl_protocols       TLSv1.2 TLSv1.3;

    add_header Strict-Transport-Security "max-age=31536000; includeSubDomains" always;
{{- else}}
server {
    listen 80;
    listen [::]:80;
    server_name {{.ServerNames}};

    location /.well-known/acme-challenge/ {
        root {{.StaticRoot}};
    }
{{- end}}
    add_header X-Frame-Options "DENY" always;
    add_header X-Content-Type-Options "nosniff" always;

    root {{.StaticRoot}};
    index index.html;

    location /api/ {
        proxy_pass http://127.0.0.1:{{.AppPort}};
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_read_timeout 120s;
    }

    location = /health {
        proxy_pass http://127.0.0.1:{{.AppPort}};
    }

    location / {
        try_files $uri $uri/ /index.html;
    }
}
`

var parsedSiteTemplate = template.Must(template.New("site").Parse(siteTemplate))

// NginxSite describes the reverse-proxy site serving the built frontend and
// proxying API calls to the backend.
type NginxSite struct {
	Domain     string
	WWW        bool // also answer on www.<domain>
	StaticRoot string
	AppPort    int
	SitesDir   string // sites-available
	EnabledDir string // sites-enabled
	TLS        bool
	CertRoot   string // defaults to /etc/letsencrypt/live
}

// ServerNames is the server_name directive value.
func (s NginxSite) ServerNames() string {
	if s.WWW {
		return s.Domain + " www." + s.Domain
	}
	return s.Domain
}

// CertDir is the directory holding the site's certificate files.
func (s NginxSite) CertDir() string {
	root := s.CertRoot
	if root == "" {
		root = "/etc/letsencrypt/live"
	}
	return filepath.Join(root, s.Domain)
}

// ConfigPath is where the site file is written.
func (s NginxSite) ConfigPath() string {
	return filepath.Join(s.SitesDir, s.Domain)
}

// EnabledPath is the sites-enabled symlink.
func (s NginxSite) EnabledPath() string {
	return filepath.Join(s.EnabledDir, s.Domain)
}

func (s NginxSite) validate() error {
	var problems []string
	if s.Domain == "" || strings.ContainsAny(s.Domain, " /;{}") {
		problems = append(problems, fmt.Sprintf("invalid domain %q", s.Domain))
	}
	if s.StaticRoot == "" {
		problems = append(problems, "static root is required")
	}
	if s.AppPort <= 0 || s.AppPort > 65535 {
		problems = append(problems, fmt.Sprintf("invalid app port %d", s.AppPort))
	}
	if s.SitesDir == "" || s.EnabledDir == "" {
		problems = append(problems, "nginx site directories are required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Render returns the site configuration.
func (s NginxSite) Render() ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := parsedSiteTemplate.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("rendering nginx site: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the site into SitesDir and links it from EnabledDir.
func (s NginxSite) Write() error {
	content, err := s.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.SitesDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.SitesDir, err)
	}
	if err := os.WriteFile(s.ConfigPath(), content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.ConfigPath(), err)
	}
	return nil
}

// Enable links the site into EnabledDir, replacing an existing link.
func (s NginxSite) Enable() error {
	if err := os.MkdirAll(s.EnabledDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.EnabledDir, err)
	}
	link := s.EnabledPath()
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", link, err)
	}
	if err := os.Symlink(s.ConfigPath(), link); err != nil {
		return fmt.Errorf("enabling site: %w", err)
	}
	return nil
}

// NginxSteps installs the site and reloads nginx. The configuration test
// must pass before the reload step runs.
func NginxSteps(r Runner, site NginxSite) []Step {
	return []Step{
		{Name: "write site config", Run: func(context.Context) error { return site.Write() }},
		{Name: "enable site", Run: func(context.Context) error { return site.Enable() }},
		CommandStep(r, "test nginx config", "nginx", "-t"),
		CommandStep(r, "reload nginx", "systemctl", "reload", "nginx"),
	}
}

// CertificateSteps issues a certificate for the site with certbot and
// switches the site to its TLS configuration.
func CertificateSteps(r Runner, site NginxSite, email string) []Step {
	args := []string{"certonly", "--nginx", "--non-interactive", "--agree-tos", "-m", email, "-d", site.Domain}
	if site.WWW {
		args = append(args, "-d", "www."+site.Domain)
	}
	tlsSite := site
	tlsSite.TLS = true

	steps := []Step{
		{Name: "check email", Run: func(context.Context) error {
			if !strings.Contains(email, "@") {
				return fmt.Errorf("a contact email is required for certificate issuance, got %q", email)
			}
			return nil
		}},
		CommandStep(r, "issue certificate", "certbot", args...),
	}
	return append(steps, NginxSteps(r, tlsSite)...)
}

// FirewallSteps opens SSH and web traffic and enables the firewall.
func FirewallSteps(r Runner) []Step {
	return []Step{
		CommandStep(r, "allow ssh", "ufw", "allow", "OpenSSH"),
		CommandStep(r, "allow web traffic", "ufw", "allow", "Nginx Full"),
		CommandStep(r, "enable firewall", "ufw", "--force", "enable"),
	}
}
