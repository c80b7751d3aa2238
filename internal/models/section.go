package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// BuiltinSection identifies a homepage block implemented in code.
type BuiltinSection string

const (
	SectionHero     BuiltinSection = "hero"
	SectionManager  BuiltinSection = "manager"
	SectionFeatures BuiltinSection = "features"
	SectionCourse   BuiltinSection = "course"
	SectionCTA      BuiltinSection = "cta"
	SectionWhatsApp BuiltinSection = "whatsapp"
)

// CustomSectionIDPrefix prefixes generated custom section ids.
const CustomSectionIDPrefix = "custom_"

var builtinSectionLabels = map[BuiltinSection]string{
	SectionHero:     "হিরো সেকশন",
	SectionManager:  "ম্যানেজার সেকশন",
	SectionFeatures: "ফিচার সেকশন",
	SectionCourse:   "কোর্স সেকশন",
	SectionCTA:      "CTA সেকশন",
	SectionWhatsApp: "WhatsApp সেকশন",
}

var defaultSectionOrder = []string{
	string(SectionHero),
	string(SectionManager),
	string(SectionFeatures),
	string(SectionCourse),
	string(SectionCTA),
	string(SectionWhatsApp),
}

// DefaultSectionOrder returns a fresh copy of the fallback ordering.
func DefaultSectionOrder() []string {
	out := make([]string, len(defaultSectionOrder))
	copy(out, defaultSectionOrder)
	return out
}

// Label returns the admin-facing name of the builtin section.
func (b BuiltinSection) Label() string {
	return builtinSectionLabels[b]
}

// IsBuiltinSection reports whether key names a builtin block.
func IsBuiltinSection(key string) bool {
	_, ok := builtinSectionLabels[BuiltinSection(key)]
	return ok
}

// CustomSection is an admin-authored homepage block stored as data.
type CustomSection struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Desc       string `json:"desc,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`
	ButtonLink string `json:"buttonLink,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// HasButton is true only when both the text and the link are present.
func (c CustomSection) HasButton() bool {
	return strings.TrimSpace(c.ButtonText) != "" && strings.TrimSpace(c.ButtonLink) != ""
}

// ButtonIsExternal reports whether the button leaves the site.
func (c CustomSection) ButtonIsExternal() bool {
	return IsExternalLink(c.ButtonLink)
}

// IsExternalLink is true for absolute http(s) URLs.
func IsExternalLink(link string) bool {
	l := strings.ToLower(strings.TrimSpace(link))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// IsInternalLink is true for site-relative routes such as "/hadiya".
func IsInternalLink(link string) bool {
	l := strings.TrimSpace(link)
	return strings.HasPrefix(l, "/") && !strings.HasPrefix(l, "//")
}

// NewCustomSectionID derives an id from the creation instant.
func NewCustomSectionID(now time.Time) string {
	return CustomSectionIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// ParseOrder decodes the section_order setting. Anything other than a JSON array
// holding at least one string yields the default order.
func ParseOrder(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return DefaultSectionOrder()
	}
	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil || len(order) == 0 {
		return DefaultSectionOrder()
	}
	return order
}

// ParseCustomSections decodes the custom_sections setting, falling back to an empty list.
func ParseCustomSections(raw string) []CustomSection {
	if strings.TrimSpace(raw) == "" {
		return []CustomSection{}
	}
	var customs []CustomSection
	if err := json.Unmarshal([]byte(raw), &customs); err != nil || customs == nil {
		return []CustomSection{}
	}
	return customs
}

// EncodeOrder serialises an order list for storage.
func EncodeOrder(order []string) (string, error) {
	if order == nil {
		order = []string{}
	}
	b, err := json.Marshal(order)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeCustomSections serialises custom sections for storage.
func EncodeCustomSections(customs []CustomSection) (string, error) {
	if customs == nil {
		customs = []CustomSection{}
	}
	b, err := json.Marshal(customs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SectionLabel names any key. Builtins use fixed labels, custom ids use their title and
// anything else comes back as the raw key.
func SectionLabel(key string, customs []CustomSection) string {
	if label, ok := builtinSectionLabels[BuiltinSection(key)]; ok {
		return label
	}
	for _, c := range customs {
		if c.ID == key {
			if c.Title != "" {
				return c.Title
			}
			break
		}
	}
	return key
}

// SectionKind tags a resolved section.
type SectionKind string

const (
	SectionKindBuiltin SectionKind = "builtin"
	SectionKindCustom  SectionKind = "custom"
)

// SectionRef is one resolved entry of the homepage order.
type SectionRef struct {
	Key     string         `json:"key"`
	Kind    SectionKind    `json:"kind"`
	Builtin BuiltinSection `json:"builtin,omitempty"`
	Custom  *CustomSection `json:"custom,omitempty"`
}

// ResolveSections maps the order onto builtin or custom sections, keeping the order
// and dropping keys that match neither.
func ResolveSections(order []string, customs []CustomSection) []SectionRef {
	byID := make(map[string]*CustomSection, len(customs))
	for i := range customs {
		if _, dup := byID[customs[i].ID]; !dup {
			byID[customs[i].ID] = &customs[i]
		}
	}
	refs := make([]SectionRef, 0, len(order))
	for _, key := range order {
		if IsBuiltinSection(key) {
			refs = append(refs, SectionRef{Key: key, Kind: SectionKindBuiltin, Builtin: BuiltinSection(key)})
			continue
		}
		if c, ok := byID[key]; ok {
			cp := *c
			refs = append(refs, SectionRef{Key: key, Kind: SectionKindCustom, Custom: &cp})
		}
	}
	return refs
}
