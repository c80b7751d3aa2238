package models

// HeroView is the data for the hero block.
type HeroView struct {
	BannerURL string `json:"banner_url,omitempty"`
	Bismillah string `json:"bismillah"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
}

// ManagerView is the "managed by" badge.
type ManagerView struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// FeatureCard is one of the three feature cards.
type FeatureCard struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// FeaturesView is the feature grid.
type FeaturesView struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Cards    []FeatureCard `json:"cards"`
}

// CourseView lists the surahs of the course.
type CourseView struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Surahs   []SurahSummary `json:"surahs"`
}

// CTAView is the registration call to action.
type CTAView struct {
	Title      string `json:"title"`
	Desc       string `json:"desc"`
	ButtonText string `json:"button_text"`
	ButtonLink string `json:"button_link"`
}

// WhatsAppView invites visitors to the group.
type WhatsAppView struct {
	Title      string `json:"title"`
	Desc       string `json:"desc"`
	ButtonText string `json:"button_text"`
}

// HomeSection is one rendered block of the homepage. Exactly one of the view
// pointers is set, matching Builtin, or Custom for admin-defined blocks.
type HomeSection struct {
	Key      string         `json:"key"`
	Kind     SectionKind    `json:"kind"`
	Builtin  BuiltinSection `json:"builtin,omitempty"`
	Label    string         `json:"label"`
	Hero     *HeroView      `json:"hero,omitempty"`
	Manager  *ManagerView   `json:"manager,omitempty"`
	Features *FeaturesView  `json:"features,omitempty"`
	Course   *CourseView    `json:"course,omitempty"`
	CTA      *CTAView       `json:"cta,omitempty"`
	WhatsApp *WhatsAppView  `json:"whatsapp,omitempty"`
	Custom   *CustomSection `json:"custom,omitempty"`
}

// Homepage is the composed public landing page.
type Homepage struct {
	SiteName   string        `json:"site_name"`
	LogoURL    string        `json:"logo_url,omitempty"`
	HadiyaLink string        `json:"hadiya_link"`
	Sections   []HomeSection `json:"sections"`
}
