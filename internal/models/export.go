package models

// ExportFormat is the file format of an admin download.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportKind names the table being exported.
type ExportKind string

const (
	ExportUsers       ExportKind = "users"
	ExportSubmissions ExportKind = "submissions"
	ExportJoins       ExportKind = "whatsapp-joins"
	ExportDonations   ExportKind = "donations"
)
