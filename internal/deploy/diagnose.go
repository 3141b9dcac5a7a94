package deploy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Check is one diagnostic result.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Report collects the checks run for a domain.
type Report struct {
	Domain string  `json:"domain"`
	Checks []Check `json:"checks"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, ok bool, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
}

// Diagnoser inspects how a domain is served: DNS, reachability, the HTTP to
// HTTPS redirect and the TLS certificate.
type Diagnoser struct {
	LookupHost func(ctx context.Context, host string) ([]string, error)
	ServerIP   string // expected address, skipped when empty
	HTTPPort   int
	HTTPSPort  int
	Timeout    time.Duration
	TLSConfig  *tls.Config // nil uses the system roots
	ExpiryWarn time.Duration
	Now        func() time.Time
}

// NewDiagnoser returns a Diagnoser using the system resolver and the
// standard ports.
func NewDiagnoser(serverIP string) *Diagnoser {
	return &Diagnoser{
		LookupHost: net.DefaultResolver.LookupHost,
		ServerIP:   serverIP,
		HTTPPort:   80,
		HTTPSPort:  443,
		Timeout:    5 * time.Second,
		ExpiryWarn: 14 * 24 * time.Hour,
		Now:        time.Now,
	}
}

// Diagnose runs every check against domain. Checks that depend on DNS are
// skipped when the domain does not resolve.
func (d *Diagnoser) Diagnose(ctx context.Context, domain string) Report {
	report := Report{Domain: domain}

	addrs, err := d.LookupHost(ctx, domain)
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = errors.New("no addresses")
		}
		report.add("dns", false, "lookup failed: %v", err)
		return report
	}
	report.add("dns", true, "resolves to %s", strings.Join(addrs, ", "))

	if d.ServerIP != "" {
		if slices.Contains(addrs, d.ServerIP) {
			report.add("server ip", true, "points at %s", d.ServerIP)
		} else {
			report.add("server ip", false, "expected %s, got %s; update the A record", d.ServerIP, strings.Join(addrs, ", "))
		}
	}

	addr := addrs[0]
	httpOK := d.checkPort(ctx, &report, addr, d.HTTPPort)
	httpsOK := d.checkPort(ctx, &report, addr, d.HTTPSPort)

	if httpOK {
		d.checkRedirect(ctx, &report, domain, addr)
	}
	if httpsOK {
		d.checkCertificate(ctx, &report, domain, addr)
	}
	return report
}

func (d *Diagnoser) checkPort(ctx context.Context, report *Report, addr string, port int) bool {
	name := "tcp " + strconv.Itoa(port)
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		report.add(name, false, "not reachable: %v; check the firewall and that nginx is running", err)
		return false
	}
	_ = conn.Close()
	report.add(name, true, "reachable")
	return true
}

func (d *Diagnoser) checkRedirect(ctx context.Context, report *Report, domain, addr string) {
	client := &http.Client{
		Timeout: d.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	target := "http://" + net.JoinHostPort(addr, strconv.Itoa(d.HTTPPort)) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		report.add("https redirect", false, "%v", err)
		return
	}
	req.Host = domain

	resp, err := client.Do(req)
	if err != nil {
		report.add("https redirect", false, "request failed: %v", err)
		return
	}
	_ = resp.Body.Close()

	location := resp.Header.Get("Location")
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && strings.HasPrefix(location, "https://"):
		report.add("https redirect", true, "%d to %s", resp.StatusCode, location)
	default:
		report.add("https redirect", false, "got %d (Location %q); HTTP is not redirected to HTTPS", resp.StatusCode, location)
	}
}

func (d *Diagnoser) checkCertificate(ctx context.Context, report *Report, domain, addr string) {
	cfg := &tls.Config{}
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	}
	cfg.ServerName = domain

	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: d.Timeout}, Config: cfg}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(d.HTTPSPort)))
	if err != nil {
		report.add("tls certificate", false, "handshake failed: %v", err)
		return
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		report.add("tls certificate", false, "no certificate presented")
		return
	}
	leaf := certs[0]
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	remaining := leaf.NotAfter.Sub(now())
	days := int(remaining.Hours() / 24)
	switch {
	case remaining <= 0:
		report.add("tls certificate", false, "expired on %s", leaf.NotAfter.Format(time.DateOnly))
	case remaining < d.ExpiryWarn:
		report.add("tls certificate", false, "expires in %d days (%s); renew with certbot renew", days, leaf.NotAfter.Format(time.DateOnly))
	default:
		report.add("tls certificate", true, "valid until %s (%d days)", leaf.NotAfter.Format(time.DateOnly), days)
	}
}
