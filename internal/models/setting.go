package models

import (
	"strconv"
	"time"
)

// SettingType describes how a setting's string value is interpreted.
type SettingType string

const (
	SettingTypeString  SettingType = "STRING"
	SettingTypeBoolean SettingType = "BOOLEAN"
	SettingTypeInteger SettingType = "INTEGER"
	SettingTypeJSON    SettingType = "JSON"
	SettingTypeURL     SettingType = "URL"
)

// Setting is one row of the key/value settings register.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SettingDefinition describes a key accepted by the admin settings API.
type SettingDefinition struct {
	Key         string      `json:"key"`
	Type        SettingType `json:"type"`
	Description string      `json:"description"`
	// Default is shown on the public site while the key has never been written.
	Default string `json:"default,omitempty"`
}

// Well known setting keys.
const (
	SettingSiteName          = "site_name"
	SettingLogoURL           = "logo_url"
	SettingHeroBannerURL     = "hero_banner_url"
	SettingHeroBismillah     = "hero_bismillah"
	SettingHeroTitle         = "hero_title"
	SettingHeroSubtitle      = "hero_subtitle"
	SettingManagerName       = "manager_name"
	SettingFeaturesTitle     = "features_title"
	SettingFeaturesSubtitle  = "features_subtitle"
	SettingCourseTitle       = "course_title"
	SettingCourseSubtitle    = "course_subtitle"
	SettingCTATitle          = "cta_title"
	SettingCTADesc           = "cta_desc"
	SettingCTAButtonText     = "cta_button_text"
	SettingWhatsAppTitle     = "whatsapp_title"
	SettingWhatsAppDesc      = "whatsapp_desc"
	SettingWhatsAppButton    = "whatsapp_button_text"
	SettingWhatsAppLink      = "whatsapp_link"
	SettingMCQTimeLimit      = "mcq_time_limit"
	SettingAutoMarking       = "auto_marking"
	SettingBkashNumber       = "bkash_number"
	SettingNagadNumber       = "nagad_number"
	SettingHadiyaDescription = "hadiya_description"
	SettingBkashQRURL        = "bkash_qr_url"
	SettingNagadQRURL        = "nagad_qr_url"
	SettingGoogleFormLink    = "google_form_link"
	SettingSectionOrder      = "section_order"
	SettingCustomSections    = "custom_sections"
)

// FeatureTitleKey returns the settings key of the n-th feature card title.
func FeatureTitleKey(n int) string { return "feature_" + strconv.Itoa(n) + "_title" }

// FeatureDescKey returns the settings key of the n-th feature card description.
func FeatureDescKey(n int) string { return "feature_" + strconv.Itoa(n) + "_desc" }

// SettingItem is a known key with its current or default value, as listed to admins.
type SettingItem struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Description string      `json:"description"`
	Stored      bool        `json:"stored"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// UpdateSettingsRequest is the admin bulk edit payload.
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values" validate:"required,min=1"`
}
