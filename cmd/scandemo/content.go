package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scandemo/internal/content"
	"scandemo/internal/ui"
)

type contentOptions struct {
	category string
	raw      bool
	width    int
}

func init() {
	rootCmd.AddCommand(
		newContentCmd("faq", "Show frequently asked questions", true, func(c *content.Catalog, o *contentOptions) string {
			return c.FAQMarkdown(o.category)
		}),
		newContentCmd("changelog", "Show the release history", true, func(c *content.Catalog, o *contentOptions) string {
			return c.ChangelogMarkdown(o.category)
		}),
		newContentCmd("pricing", "Show the pricing plans", false, func(c *content.Catalog, _ *contentOptions) string {
			return c.PricingMarkdown()
		}),
	)
}

func newContentCmd(use, short string, filtered bool, render func(*content.Catalog, *contentOptions) string) *cobra.Command {
	opts := &contentOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := content.Load()
			if err != nil {
				return err
			}
			md := render(catalog, opts)
			if !opts.raw {
				md = ui.RenderMarkdown(md, opts.width)
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}
	if filtered {
		cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Only show this category")
	}
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print markdown without rendering")
	cmd.Flags().IntVar(&opts.width, "width", 80, "Wrap rendered output at this width")
	return cmd
}
