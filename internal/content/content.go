// Package content holds the marketing copy bundled with the binary: FAQ,
// changelog, pricing plans and the landing page sections.
package content

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"scandemo/internal/filtering"
)

//go:embed data/*.yaml
var dataFS embed.FS

// FAQ is one question on the FAQ page.
type FAQ struct {
	Category string `yaml:"category" json:"category"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Release types. The changelog page filters on their Label.
const (
	ReleaseMajor    = "major"
	ReleaseFeature  = "feature"
	ReleasePatch    = "patch"
	ReleaseSecurity = "security"
)

var releaseTypes = []string{ReleaseMajor, ReleaseFeature, ReleasePatch, ReleaseSecurity}

// Release is one changelog entry.
type Release struct {
	Version     string   `yaml:"version" json:"version"`
	DateText    string   `yaml:"date" json:"date"`
	Type        string   `yaml:"type" json:"type"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Changes     []string `yaml:"changes" json:"changes"`
	Highlights  []string `yaml:"highlights" json:"highlights"`

	semver *version.Version
	date   time.Time
}

// Label is the category shown on the changelog filter, e.g. "Security".
func (r Release) Label() string {
	return typeLabel(r.Type)
}

// Date is the parsed release date.
func (r Release) Date() time.Time {
	return r.date
}

// SemVer is the parsed version.
func (r Release) SemVer() *version.Version {
	return r.semver
}

func typeLabel(t string) string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

// Stat is a headline number.
type Stat struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Feature is one card in the landing page feature grid.
type Feature struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Stat        Stat   `yaml:"stat" json:"stat"`
}

// Engine is a scanning tool named on the landing page.
type Engine struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Plan is a pricing tier.
type Plan struct {
	Name        string   `yaml:"name" json:"name"`
	Price       int      `yaml:"price" json:"price"`
	Period      string   `yaml:"period" json:"period"`
	Popular     bool     `yaml:"popular" json:"popular"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
}

// PriceLabel formats the price as shown on the card, e.g. "$99/month".
func (p Plan) PriceLabel() string {
	return fmt.Sprintf("$%d/%s", p.Price, p.Period)
}

// Link is a navigation entry.
type Link struct {
	Name string `yaml:"name" json:"name"`
	Href string `yaml:"href" json:"href"`
}

// Site is the landing page content.
type Site struct {
	Product    string    `yaml:"product" json:"product"`
	Navigation []Link    `yaml:"navigation" json:"navigation"`
	Features   []Feature `yaml:"features" json:"features"`
	Stats      []Stat    `yaml:"stats" json:"stats"`
	Engines    []Engine  `yaml:"engines" json:"engines"`
	Plans      []Plan    `yaml:"plans" json:"plans"`
}

// Catalog is the parsed, validated content. It is read-only after Load.
type Catalog struct {
	Site     Site
	faqs     []FAQ
	releases []Release
}

// Load parses the embedded content.
func Load() (*Catalog, error) {
	c := &Catalog{}
	if err := decode("data/site.yaml", &c.Site); err != nil {
		return nil, err
	}
	if err := decode("data/faq.yaml", &c.faqs); err != nil {
		return nil, err
	}
	if err := decode("data/changelog.yaml", &c.releases); err != nil {
		return nil, err
	}

	for i := range c.releases {
		r := &c.releases[i]
		v, err := version.NewVersion(r.Version)
		if err != nil {
			return nil, fmt.Errorf("release %q: %w", r.Version, err)
		}
		r.semver = v
		d, err := dateparse.ParseIn(r.DateText, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("release %s date %q: %w", r.Version, r.DateText, err)
		}
		r.date = d
		if !contains(releaseTypes, r.Type) {
			return nil, fmt.Errorf("release %s has unknown type %q", r.Version, r.Type)
		}
	}
	sort.SliceStable(c.releases, func(i, j int) bool {
		return c.releases[i].semver.GreaterThan(c.releases[j].semver)
	})
	return c, nil
}

func decode(path string, out any) error {
	b, err := dataFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FAQ returns the questions in category. All returns every question.
func (c *Catalog) FAQ(category string) []FAQ {
	return filtering.ByCategory(c.faqs, filtering.Normalize(category), func(f FAQ) string { return f.Category })
}

// FAQCategories lists the FAQ filter buttons.
func (c *Catalog) FAQCategories() []string {
	return filtering.Categories(c.faqs, func(f FAQ) string { return f.Category })
}

// Changelog returns releases whose label equals category, newest version
// first.
func (c *Catalog) Changelog(category string) []Release {
	return filtering.ByCategory(c.releases, filtering.Normalize(category), Release.Label)
}

// ChangelogCategories lists the changelog filter buttons.
func (c *Catalog) ChangelogCategories() []string {
	out := []string{filtering.All}
	for _, t := range releaseTypes {
		out = append(out, typeLabel(t))
	}
	return out
}

// Latest is the release with the highest version.
func (c *Catalog) Latest() Release {
	return c.releases[0]
}
