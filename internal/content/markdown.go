package content

import (
	"fmt"
	"strings"
)

// FAQMarkdown renders the questions in category.
func (c *Catalog) FAQMarkdown(category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Frequently Asked Questions\n\n")
	faqs := c.FAQ(category)
	if len(faqs) == 0 {
		fmt.Fprintf(&b, "_No questions in category %q._\n", category)
		return b.String()
	}
	for _, f := range faqs {
		fmt.Fprintf(&b, "## %s\n\n`%s`\n\n%s\n\n", f.Question, f.Category, f.Answer)
	}
	return b.String()
}

// ChangelogMarkdown renders the releases in category.
func (c *Catalog) ChangelogMarkdown(category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Changelog\n\n")
	releases := c.Changelog(category)
	if len(releases) == 0 {
		fmt.Fprintf(&b, "_No releases in category %q._\n", category)
		return b.String()
	}
	for _, r := range releases {
		fmt.Fprintf(&b, "## %s: %s\n\n", r.Version, r.Title)
		fmt.Fprintf(&b, "**%s** · %s\n\n%s\n\n", r.Label(), r.Date().Format("January 2, 2006"), r.Description)
		for _, change := range r.Changes {
			fmt.Fprintf(&b, "- %s\n", change)
		}
		if len(r.Highlights) > 0 {
			fmt.Fprintf(&b, "\n_Highlights: %s_\n", strings.Join(r.Highlights, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// PricingMarkdown renders the plans.
func (c *Catalog) PricingMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Pricing\n\n", c.Site.Product)
	for _, p := range c.Site.Plans {
		name := p.Name
		if p.Popular {
			name += " (Most Popular)"
		}
		fmt.Fprintf(&b, "## %s: %s\n\n%s\n\n", name, p.PriceLabel(), p.Description)
		for _, f := range p.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	return b.String()
}
