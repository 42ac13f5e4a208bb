package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"scandemo/internal/apiclient"
	"scandemo/internal/config"
	"scandemo/internal/model"
	"scandemo/internal/polling"
	"scandemo/internal/report"
	"scandemo/internal/scan"
)

var useMock bool

func init() {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Talk to a running scandemo backend",
		Long: `Commands that call the HTTP API of 'scandemo serve' (see api.url).
With --mock every call is answered locally with canned data.`,
	}
	apiCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Answer calls locally instead of contacting the backend")

	apiCmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newAPIStartCmd(),
		newAPIStatusCmd(),
		newAPIResultsCmd(),
		newAPIListCmd(),
		newAPIStopCmd(),
		newVulnsCmd(),
		newAPIReportCmd(),
	)
	rootCmd.AddCommand(apiCmd)
}

func apiClient() (apiclient.API, error) {
	return apiFactory(config.Current(), useMock)
}

// withAPI adapts a handler that needs a client into a RunE.
func withAPI(fn func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		api, err := apiClient()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), cmd, api, args)
	}
}

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, _ []string) error {
			if email == "" {
				if err := askOne(&survey.Input{Message: "Email:"}, &email, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			if password == "" {
				if err := askOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			session, err := api.Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.User.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req apiclient.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, _ []string) error {
			if req.Password == "" {
				if err := askOne(&survey.Password{Message: "Password:"}, &req.Password, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			user, err := api.Register(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created (id %d)\n", user.Email, user.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (prompted when empty)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, _ []string) error {
			if err := api.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, _ []string) error {
			user, err := api.CurrentUser(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.Name)
			return nil
		}),
	}
}

func newAPIStartCmd() *cobra.Command {
	var (
		mode, scanType string
		wait           bool
		interval       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "start <url>",
		Short: "Start a scan on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			m, ok := model.ParseScanMode(mode)
			if !ok {
				return fmt.Errorf("unknown scan mode %q", mode)
			}
			t, ok := model.ParseScanType(scanType)
			if !ok {
				return fmt.Errorf("unknown scan type %q", scanType)
			}

			resp, err := api.StartScan(ctx, apiclient.StartScanRequest{URL: args[0], Mode: m, ScanType: t})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan %s started for %s\n", resp.ScanID, resp.URL)
			if !wait {
				return nil
			}

			last, err := waitForScan(ctx, out, api, resp.ScanID, interval)
			if err != nil {
				return err
			}
			if last.Status != model.StatusCompleted {
				return fmt.Errorf("scan %s ended %s", last.ScanID, last.Status)
			}
			results, err := api.ScanResults(ctx, resp.ScanID)
			if err != nil {
				return err
			}
			printResults(out, results)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(model.ModeStealth), "Scan mode: stealth, aggressive or silent")
	cmd.Flags().StringVarP(&scanType, "type", "t", string(model.TypeQuick), "Scan type: quick, standard or full")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the scan finishes and print the results")
	cmd.Flags().DurationVar(&interval, "interval", polling.NewConfig().Interval, "Polling interval for --wait")
	return cmd
}

// waitForScan polls the status endpoint until the scan is terminal.
func waitForScan(ctx context.Context, out io.Writer, api apiclient.API, scanID string, interval time.Duration) (apiclient.ScanStatus, error) {
	var last apiclient.ScanStatus
	lastProgress := -1.0
	poller := polling.NewPoller("scan-status", &polling.Config{Interval: interval})
	err := poller.Until(ctx, func(ctx context.Context) (bool, error) {
		st, err := api.ScanStatus(ctx, scanID)
		if err != nil {
			return false, err
		}
		last = st
		if st.Progress != lastProgress {
			fmt.Fprintf(out, "  %3.0f%%  %s\n", st.Progress, st.Status)
			lastProgress = st.Progress
		}
		return st.Status.Terminal(), nil
	})
	return last, err
}

func newAPIStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <scan-id>",
		Short: "Show a scan's progress",
		Args:  cobra.ExactArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			st, err := api.ScanStatus(ctx, args[0])
			if err != nil {
				return err
			}
			printStatuses(cmd.OutOrStdout(), []apiclient.ScanStatus{st})
			return nil
		}),
	}
}

func newAPIResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <scan-id>",
		Short: "Show a scan's findings",
		Args:  cobra.ExactArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			results, err := api.ScanResults(ctx, args[0])
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		}),
	}
}

func newAPIListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scans",
		Args:  cobra.NoArgs,
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, _ []string) error {
			scans, err := api.ListScans(ctx)
			if err != nil {
				return err
			}
			if len(scans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scans yet.")
				return nil
			}
			printStatuses(cmd.OutOrStdout(), scans)
			return nil
		}),
	}
}

func newAPIStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <scan-id>",
		Short: "Cancel a running scan",
		Args:  cobra.ExactArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			st, err := api.StopScan(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scan %s %s\n", st.ScanID, st.Status)
			return nil
		}),
	}
}

func newVulnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vulns [id]",
		Short: "List vulnerabilities, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid vulnerability id %q", args[0])
				}
				f, err := api.Vulnerability(ctx, id)
				if err != nil {
					return err
				}
				printFindings(cmd.OutOrStdout(), []scan.Finding{f})
				return nil
			}
			findings, err := api.Vulnerabilities(ctx)
			if err != nil {
				return err
			}
			printFindings(cmd.OutOrStdout(), findings)
			return nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Set the triage status of a vulnerability",
		Long:  "Status is one of open, confirmed, false_positive or fixed.",
		Args:  cobra.ExactArgs(2),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid vulnerability id %q", args[0])
			}
			status, ok := model.ParseTriageStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}
			f, err := api.UpdateVulnerabilityStatus(ctx, id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vulnerability %d is now %s\n", f.ID, f.Status)
			return nil
		}),
	})
	return cmd
}

func newAPIReportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "report <scan-id>",
		Short: "Download a scan report",
		Args:  cobra.ExactArgs(1),
		RunE: withAPI(func(ctx context.Context, cmd *cobra.Command, api apiclient.API, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			var data []byte
			switch f {
			case report.FormatJSON:
				data, err = api.JSONReport(ctx, args[0])
			case report.FormatExcel:
				data, err = api.ExcelReport(ctx, args[0])
			case report.FormatPDF:
				data, err = api.PDFReport(ctx, args[0])
			default:
				err = errors.New("the API serves json, excel and pdf reports")
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = report.Filename(f, args[0])
			}
			if err := afero.WriteFile(appFS, output, data, 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatJSON), "Report format: json, excel or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to scan-report-<id>.<ext>)")
	return cmd
}

func printStatuses(out io.Writer, scans []apiclient.ScanStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCAN\tURL\tSTATUS\tPROGRESS\tFINDINGS")
	for _, s := range scans {
		status := string(s.Status)
		if s.Paused {
			status += " (paused)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%d\n", s.ScanID, s.URL, status, s.Progress, s.VulnerabilitiesFound)
	}
	w.Flush()
}

func printResults(out io.Writer, r apiclient.ScanResults) {
	sc := model.Scan{ID: r.ScanID, TargetURL: r.URL, Status: r.Status, Vulnerabilities: r.Vulnerabilities}
	printScanSummary(out, sc)
}

func printFindings(out io.Writer, findings []scan.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(out, "No vulnerabilities.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tTITLE\tSTATUS\tSCAN")
	for _, f := range findings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.Severity.Title(), f.Title, f.Status, f.ScanID)
	}
	w.Flush()
}
