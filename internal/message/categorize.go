package message

import (
	"strings"

	"github.com/bscott/mailsync/internal/config"
)

type Category string

const (
	CategoryWork       Category = "work"
	CategoryPersonal   Category = "personal"
	CategoryPromotions Category = "promotions"
)

// CategoryTable holds the keyword lists the categorizer matches sender
// domains against. Version lets deployments track edits to the lists.
type CategoryTable struct {
	Version         int
	PromoKeywords   []string
	WorkDomains     []string
	PersonalMarkers []string
	Colors          map[Category]string
}

func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		Version: 1,
		PromoKeywords: dedupe([]string{
			"newsletter", "mailchimp", "constantcontact", "sendgrid", "mailgun",
			"amazon", "ebay", "facebook", "twitter", "linkedin", "instagram",
			"youtube", "netflix", "spotify", "uber", "lyft", "airbnb", "booking",
			"expedia", "tripadvisor", "paypal", "stripe", "shopify", "woocommerce",
			"wordpress", "blogger", "medium", "substack", "patreon", "kickstarter",
			"indiegogo", "gofundme", "eventbrite", "meetup", "slack", "discord",
			"zoom", "teams", "webex", "gotomeeting", "cisco", "juniper", "aruba",
			"huawei", "dell", "hp", "lenovo", "apple", "microsoft", "google",
		}),
		WorkDomains: []string{
			"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "aol.com",
			"protonmail.com", "icloud.com", "me.com", "mac.com",
		},
		PersonalMarkers: []string{"gmail", "yahoo", "hotmail"},
		Colors: map[Category]string{
			CategoryWork:       "#34A853",
			CategoryPersonal:   "#FFB800",
			CategoryPromotions: "#2D62ED",
		},
	}
}

// TableFromConfig starts from the default table and replaces every list the
// config sets.
func TableFromConfig(cfg config.CategoriesConfig) CategoryTable {
	t := DefaultCategoryTable()
	if cfg.Version > 0 {
		t.Version = cfg.Version
	}
	if len(cfg.PromoKeywords) > 0 {
		t.PromoKeywords = dedupe(lowerAll(cfg.PromoKeywords))
	}
	if len(cfg.WorkDomains) > 0 {
		t.WorkDomains = dedupe(lowerAll(cfg.WorkDomains))
	}
	if len(cfg.PersonalMarkers) > 0 {
		t.PersonalMarkers = dedupe(lowerAll(cfg.PersonalMarkers))
	}
	for k, v := range cfg.Colors {
		t.Colors[Category(strings.ToLower(k))] = v
	}
	return t
}

type Categorizer struct {
	table CategoryTable
}

func NewCategorizer(table CategoryTable) *Categorizer {
	return &Categorizer{table: table}
}

// Categorize classifies a sender address by its domain. Promotional keywords
// win over everything else; the listed consumer providers map to work, as do
// short non-consumer domains; anything unresolvable is personal.
func (c *Categorizer) Categorize(address string) Category {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return CategoryPersonal
	}
	domain := strings.ToLower(strings.TrimSpace(address[at+1:]))
	domain = strings.TrimSuffix(domain, ">")
	if domain == "" {
		return CategoryPersonal
	}

	for _, kw := range c.table.PromoKeywords {
		if strings.Contains(domain, kw) {
			return CategoryPromotions
		}
	}

	for _, d := range c.table.WorkDomains {
		if domain == d {
			return CategoryWork
		}
	}

	labels := len(strings.Split(domain, "."))
	if labels >= 2 && labels <= 3 && !c.hasPersonalMarker(domain) {
		return CategoryWork
	}

	return CategoryPersonal
}

func (c *Categorizer) hasPersonalMarker(domain string) bool {
	for _, m := range c.table.PersonalMarkers {
		if strings.Contains(domain, m) {
			return true
		}
	}
	return false
}

func (c *Categorizer) Color(cat Category) string {
	if color, ok := c.table.Colors[cat]; ok {
		return color
	}
	return c.table.Colors[CategoryPersonal]
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
