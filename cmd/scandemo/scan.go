package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"scandemo/internal/config"
	"scandemo/internal/db"
	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/report"
	"scandemo/internal/scan"
	"scandemo/internal/telemetry"
	"scandemo/internal/ui"
	"scandemo/internal/utils"
)

var askOne = survey.AskOne

type scanOptions struct {
	mode      string
	scanType  string
	plain     bool
	timeScale float64
	jsonOut   bool
}

func init() {
	rootCmd.AddCommand(newScanCmd())
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Run a simulated scan in the terminal",
		Long: `Runs the scripted scan against the given URL and shows each phase, the
progress and the findings. Without a URL you are prompted for one.

The URL is only checked for syntax; nothing is sent to it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			target := ""
			if len(args) > 0 {
				target = args[0]
			} else {
				prompt := &survey.Input{Message: "Target URL:", Help: "e.g. https://example.com"}
				if err := askOne(prompt, &target, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			return runScan(ctx, cmd, target, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(model.ModeStealth), "Scan mode: stealth, aggressive or silent")
	cmd.Flags().StringVarP(&opts.scanType, "type", "t", string(model.TypeQuick), "Scan type: quick, standard or full")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print a progress bar instead of the interactive view")
	cmd.Flags().Float64Var(&opts.timeScale, "time-scale", 0, "Multiply every phase duration (overrides simulation.time_scale)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the final report as JSON")
	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, target string, opts *scanOptions) error {
	mode, ok := model.ParseScanMode(opts.mode)
	if !ok {
		return fmt.Errorf("unknown scan mode %q", opts.mode)
	}
	scanType, ok := model.ParseScanType(opts.scanType)
	if !ok {
		return fmt.Errorf("unknown scan type %q", opts.scanType)
	}

	s := config.Current()
	scale := s.TimeScale
	if opts.timeScale > 0 {
		scale = opts.timeScale
	}

	// Terminal scans are not persisted
	svc := newService(db.NewMemoryStore(), scale, nil, notify.NewManager(notify.LogNotifier{}))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(shutdownCtx)
	}()

	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	if !opts.plain {
		// Log lines would tear the interactive view
		prev := slog.Default()
		slog.SetDefault(telemetry.NewLogger(s.Verbose, s.LogFile, true))
		defer slog.SetDefault(prev)
	}

	sc, err := svc.Start(ctx, target, mode, scanType)
	if err != nil {
		var te *model.TargetError
		if errors.As(err, &te) {
			return errors.New(te.Message)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if opts.plain {
		err = followPlain(ctx, out, svc, sc, events)
	} else {
		err = followTUI(ctx, cmd, svc, sc, events)
	}
	if err != nil {
		return err
	}

	final, err := svc.Get(sc.ID)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.New(final, time.Now()))
	}
	printScanSummary(out, final)
	return nil
}

// followPlain drives a progress bar until the scan ends or ctx is
// cancelled, in which case the scan is stopped.
func followPlain(ctx context.Context, out io.Writer, svc *scan.Service, sc model.Scan, events <-chan scan.Event) error {
	bar := pb.New(100)
	bar.SetWriter(out)
	bar.SetTemplateString(`{{string . "phase" | printf "%-20s"}} {{bar . "[" "=" ">" " " "]"}} {{percent .}}`)
	bar.Set("phase", "Starting")
	bar.Start()
	defer bar.Finish()

	for {
		select {
		case <-ctx.Done():
			if _, err := svc.Stop(context.Background(), sc.ID); err != nil && !errors.Is(err, apperrors.ErrInvalidState) {
				return err
			}
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if e.ScanID != sc.ID {
				continue
			}
			switch e.Type {
			case scan.EventPhase:
				bar.Set("phase", e.Phase)
			case scan.EventProgress, scan.EventCompleted:
				bar.SetCurrent(int64(e.Progress))
			}
			if e.Terminal() {
				return nil
			}
		}
	}
}

func followTUI(ctx context.Context, cmd *cobra.Command, svc *scan.Service, sc model.Scan, events <-chan scan.Event) error {
	m := ui.NewScanModel(sc, svc.Phases(), events, ui.ScanActions{
		Stop:   func() error { _, err := svc.Stop(ctx, sc.ID); return err },
		Pause:  func() error { _, err := svc.Pause(sc.ID); return err },
		Resume: func() error { _, err := svc.Resume(sc.ID); return err },
	})
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("scan view failed: %w", err)
	}

	// Leaving the view early stops the scan
	if fm, ok := final.(ui.ScanModel); !ok || !fm.Status().Terminal() {
		// The scan may have finished between the last event and the quit
		if _, err := svc.Stop(context.Background(), sc.ID); err != nil && !errors.Is(err, apperrors.ErrInvalidState) {
			return err
		}
	}
	return nil
}

func printScanSummary(out io.Writer, sc model.Scan) {
	sum := scan.Summarize(sc.Vulnerabilities)
	fmt.Fprintf(out, "\nScan %s: %s (%s)\n", sc.ID, sc.Status, sc.TargetURL)
	if sc.StartedAt != nil {
		fmt.Fprintf(out, "Duration: %s\n", utils.Elapsed(sc.StartedAt, sc.CompletedAt, time.Now()))
	}
	if len(sc.Vulnerabilities) == 0 {
		fmt.Fprintln(out, "No vulnerabilities found.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tTITLE\tCVSS\tLOCATION")
		for _, v := range sc.Vulnerabilities {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\n", ui.SeverityStyle(v.Severity).Render(v.Severity.Title()), v.Title, v.CVSS, v.Location)
		}
		w.Flush()
	}
	fmt.Fprintf(out, "\nCritical: %d  High: %d  Medium: %d  Low: %d\n", sum.Critical, sum.High, sum.Medium, sum.Low)
	fmt.Fprintf(out, "Risk score: %d  Security score: %d/100\n", sum.RiskScore, sum.SecurityScore)
}
