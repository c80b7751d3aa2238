package models

import "time"

// Audit actions recorded by the services.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionRegister       = "REGISTER"
	AuditActionEmailVerify    = "EMAIL_VERIFY"
	AuditActionSettingUpdate  = "SETTING_UPDATE"
	AuditActionSectionSave    = "SECTION_LAYOUT_SAVE"
	AuditActionSurahCreate    = "SURAH_CREATE"
	AuditActionSurahUpdate    = "SURAH_UPDATE"
	AuditActionSurahDelete    = "SURAH_DELETE"
	AuditActionQuestionChange = "QUESTION_CHANGE"
	AuditActionAnswerGrade    = "ANSWER_GRADE"
	AuditActionDonationReview = "DONATION_REVIEW"
	AuditActionJoinReview     = "WHATSAPP_JOIN_REVIEW"
	AuditActionProfileUpdate  = "PROFILE_UPDATE"
	AuditActionDataExport     = "DATA_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
