package models

import "time"

// RevelationType is where a surah was revealed.
type RevelationType string

const (
	RevelationMeccan  RevelationType = "meccan"
	RevelationMedinan RevelationType = "medinan"
)

// Surah is one course unit.
type Surah struct {
	ID             string         `db:"id" json:"id"`
	Number         int            `db:"surah_number" json:"surah_number"`
	NameArabic     string         `db:"surah_name_arabic" json:"surah_name_arabic"`
	NameBengali    string         `db:"surah_name_bengali" json:"surah_name_bengali"`
	NameEnglish    string         `db:"surah_name_english" json:"surah_name_english"`
	TotalAyat      int            `db:"total_ayat" json:"total_ayat"`
	RevelationType RevelationType `db:"revelation_type" json:"revelation_type"`
	PDFURL         *string        `db:"pdf_url" json:"pdf_url,omitempty"`
	GoogleFormLink *string        `db:"google_form_link" json:"google_form_link,omitempty"`
	Explanation    *string        `db:"explanation" json:"explanation,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPDF reports whether a PDF has been uploaded.
func (s Surah) HasPDF() bool {
	return s.PDFURL != nil && *s.PDFURL != ""
}

// HasExamLink reports whether the surah carries its own exam form.
func (s Surah) HasExamLink() bool {
	return s.GoogleFormLink != nil && *s.GoogleFormLink != ""
}

// SurahSummary is the public listing shape without gated fields.
type SurahSummary struct {
	ID             string         `json:"id"`
	Number         int            `json:"surah_number"`
	NameArabic     string         `json:"surah_name_arabic"`
	NameBengali    string         `json:"surah_name_bengali"`
	NameEnglish    string         `json:"surah_name_english"`
	TotalAyat      int            `json:"total_ayat"`
	RevelationType RevelationType `json:"revelation_type"`
	HasPDF         bool           `json:"has_pdf"`
	HasExam        bool           `json:"has_exam"`
}

// Summary strips gated links from the surah.
func (s Surah) Summary() SurahSummary {
	return SurahSummary{
		ID:             s.ID,
		Number:         s.Number,
		NameArabic:     s.NameArabic,
		NameBengali:    s.NameBengali,
		NameEnglish:    s.NameEnglish,
		TotalAyat:      s.TotalAyat,
		RevelationType: s.RevelationType,
		HasPDF:         s.HasPDF(),
		HasExam:        s.HasExamLink(),
	}
}

// SurahRequest creates or replaces a surah's editable fields.
type SurahRequest struct {
	Number         int            `json:"surah_number" validate:"required,min=1,max=114"`
	NameArabic     string         `json:"surah_name_arabic" validate:"required,max=100"`
	NameBengali    string         `json:"surah_name_bengali" validate:"required,max=100"`
	NameEnglish    string         `json:"surah_name_english" validate:"required,max=100"`
	TotalAyat      int            `json:"total_ayat" validate:"required,min=1,max=286"`
	RevelationType RevelationType `json:"revelation_type" validate:"required,oneof=meccan medinan"`
	GoogleFormLink *string        `json:"google_form_link" validate:"omitempty,url"`
	Explanation    *string        `json:"explanation"`
}

// ExamLinkRequest sets or clears a surah's exam form link.
type ExamLinkRequest struct {
	GoogleFormLink *string `json:"google_form_link" validate:"omitempty,url"`
}
