package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/debindra/election-2082-visualization-sub001/internal/deploy"
	"github.com/debindra/election-2082-visualization-sub001/internal/logger"
)

var errAborted = errors.New("aborted")

type deployFlags struct {
	domain  string
	email   string
	www     bool
	yes     bool
	dryRun  bool
	dir     string
	logFile string
}

func newDeployCmd(a *app) *cobra.Command {
	var df deployFlags
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Server deployment runbooks (run as root on the server)",
		Long: `Each runbook runs its steps in order and stops at the first failure.
Nothing is rolled back; fix the reported problem and run it again.`,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&df.domain, "domain", "", "site domain (overrides deploy.domain)")
	flags.StringVar(&df.email, "email", "", "certificate contact email (overrides deploy.email)")
	flags.BoolVar(&df.www, "www", true, "also serve www.<domain>")
	flags.BoolVarP(&df.yes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVar(&df.dryRun, "dry-run", false, "print the steps without running them")

	start := &cobra.Command{
		Use:   "start",
		Short: "Free the app port and start the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBook(cmd, df, "start backend", a.backend(df).StartSteps())
		},
	}
	start.Flags().StringVar(&df.dir, "dir", ".", "backend working directory")
	start.Flags().StringVar(&df.logFile, "log-file", "", "backend stdout/stderr log file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "nginx",
			Short: "Install the HTTP site, test the config and reload nginx",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				site, err := a.site(df)
				if err != nil {
					return err
				}
				return a.runBook(cmd, df, "nginx site", deploy.NginxSteps(a.runner, site))
			},
		},
		&cobra.Command{
			Use:   "certs",
			Short: "Issue a certificate and switch the site to HTTPS",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				site, err := a.site(df)
				if err != nil {
					return err
				}
				email := df.email
				if email == "" {
					email = a.cfg.Deploy.Email
				}
				return a.runBook(cmd, df, "certificates", deploy.CertificateSteps(a.runner, site, email))
			},
		},
		&cobra.Command{
			Use:   "firewall",
			Short: "Allow SSH and web traffic, then enable ufw",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runBook(cmd, df, "firewall", deploy.FirewallSteps(a.runner))
			},
		},
		start,
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the backend and free the app port",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runBook(cmd, df, "stop backend", a.backend(df).StopSteps())
			},
		},
	)
	return cmd
}

func (a *app) site(df deployFlags) (deploy.NginxSite, error) {
	domain := df.domain
	if domain == "" {
		domain = a.cfg.Deploy.Domain
	}
	if domain == "" {
		return deploy.NginxSite{}, errors.New("no domain: pass --domain or set deploy.domain")
	}
	return deploy.NginxSite{
		Domain:     domain,
		WWW:        df.www,
		StaticRoot: a.cfg.Deploy.StaticRoot,
		AppPort:    a.cfg.Deploy.AppPort,
		SitesDir:   a.cfg.Deploy.NginxSitesDir,
		EnabledDir: a.cfg.Deploy.NginxEnabled,
	}, nil
}

func (a *app) backend(df deployFlags) *deploy.Backend {
	log := logger.Named(a.logger, "deploy")
	return &deploy.Backend{
		Command: a.cfg.Deploy.BackendCmd,
		Port:    a.cfg.Deploy.AppPort,
		Dir:     df.dir,
		PIDFile: a.cfg.Deploy.PIDFile,
		Freer:   deploy.NewPortFreer(deploy.HostProcesses{}, 2*time.Second, log),
		Procs:   deploy.HostProcesses{},
		Starter: deploy.ExecStarter{LogFile: df.logFile},
		Logger:  log,
	}
}

// runBook prints the plan, asks for confirmation unless --yes, and runs it.
func (a *app) runBook(cmd *cobra.Command, df deployFlags, name string, steps []deploy.Step) error {
	rb := deploy.NewRunbook(name, logger.Named(a.logger, "deploy"), steps...)

	fmt.Fprintf(a.stdout, "%s:\n", name)
	for i, s := range rb.Steps() {
		fmt.Fprintf(a.stdout, "  %d. %s\n", i+1, s)
	}
	if df.dryRun {
		return nil
	}
	if !df.yes {
		ok, err := deploy.Confirm(a.stdin, a.stdout, "Proceed?")
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}
	if err := rb.Execute(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "done")
	return nil
}

func newDoctorCmd(a *app) *cobra.Command {
	var serverIP string
	cmd := &cobra.Command{
		Use:   "doctor [DOMAIN]",
		Short: "Diagnose DNS, reachability, HTTPS redirect and certificate for a domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := a.cfg.Deploy.Domain
			if len(args) == 1 {
				domain = args[0]
			}
			if domain == "" {
				return errors.New("no domain: pass DOMAIN or set deploy.domain")
			}
			if serverIP == "" {
				serverIP = a.cfg.Deploy.ServerIP
			}

			report := deploy.NewDiagnoser(serverIP).Diagnose(cmd.Context(), domain)
			err := a.render(report, func(w io.Writer) {
				for _, c := range report.Checks {
					status := " OK "
					if !c.OK {
						status = "FAIL"
					}
					fmt.Fprintf(w, "[%s]\t%s\t%s\n", status, c.Name, c.Detail)
				}
			})
			if err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%s: some checks failed", domain)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverIP, "server-ip", "", "expected server address (overrides deploy.server_ip)")
	return cmd
}
