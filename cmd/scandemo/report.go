package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"scandemo/internal/model"
	"scandemo/internal/report"
	"scandemo/internal/scan"
	"scandemo/internal/ui"
)

type reportOptions struct {
	format string
	output string
	demo   bool
	raw    bool
}

func init() {
	rootCmd.AddCommand(newReportCmd())
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report [scan.json]",
		Short: "Render a report from a saved scan",
		Long: `Reads a scan (or a report produced by 'scandemo scan --json') and renders it
as json, excel (CSV) or markdown. --demo renders the sample findings instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.demo {
				return errors.New("a scan file is required unless --demo is set")
			}
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			var sc model.Scan
			if opts.demo {
				sc = demoScan(time.Now())
			} else if sc, err = readScan(appFS, args[0]); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := report.Render(&buf, format, report.New(sc, time.Now())); err != nil {
				return err
			}

			if opts.output != "" {
				if err := afero.WriteFile(appFS, opts.output, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", opts.output)
				return nil
			}

			out := buf.String()
			if format == report.FormatMarkdown && !opts.raw {
				out = ui.RenderMarkdown(out, 100)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatMarkdown), "Report format: json, excel, pdf or markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Use the sample findings")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print markdown without rendering")
	return cmd
}

// readScan accepts either a bare scan or a report wrapping one.
func readScan(fs afero.Fs, path string) (model.Scan, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return model.Scan{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var r report.Report
	if err := json.Unmarshal(data, &r); err == nil && r.Scan.ID != "" {
		return r.Scan, nil
	}
	var sc model.Scan
	if err := json.Unmarshal(data, &sc); err != nil {
		return model.Scan{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if sc.ID == "" {
		return model.Scan{}, fmt.Errorf("%s does not contain a scan", path)
	}
	return sc, nil
}

func demoScan(at time.Time) model.Scan {
	return model.Scan{
		ID:              "demo",
		TargetURL:       "https://example.com",
		Mode:            model.ModeStealth,
		Type:            model.TypeQuick,
		Status:          model.StatusCompleted,
		Progress:        100,
		CreatedAt:       at,
		Vulnerabilities: scan.SampleVulnerabilities(at),
	}
}
