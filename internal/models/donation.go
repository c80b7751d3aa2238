package models

import "time"

// ReviewStatus is shared by records that admins approve or reject.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusVerified ReviewStatus = "verified"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether the status is known.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// CanTransition allows only pending -> verified/rejected.
func (s ReviewStatus) CanTransition(to ReviewStatus) bool {
	return s == StatusPending && (to == StatusVerified || to == StatusRejected)
}

// PaymentMethod is a mobile wallet used for hadiya.
type PaymentMethod string

const (
	PaymentBkash PaymentMethod = "bkash"
	PaymentNagad PaymentMethod = "nagad"
)

// Valid reports whether the method is supported.
func (m PaymentMethod) Valid() bool {
	return m == PaymentBkash || m == PaymentNagad
}

// Donation is a learner-reported hadiya payment awaiting admin review.
type Donation struct {
	ID            string        `db:"id" json:"id"`
	DonorName     string        `db:"donor_name" json:"donor_name"`
	DonorPhone    *string       `db:"donor_phone" json:"donor_phone,omitempty"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	Amount        *float64      `db:"amount" json:"amount,omitempty"`
	Status        ReviewStatus  `db:"status" json:"status"`
	AdminNote     *string       `db:"admin_note" json:"admin_note,omitempty"`
	VerifiedAt    *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// ReviewFilter scopes donation and join listings.
type ReviewFilter struct {
	Status   ReviewStatus
	Page     int
	PageSize int
}

// HadiyaInfo is the public payment page data.
type HadiyaInfo struct {
	Description string `json:"description"`
	BkashNumber string `json:"bkash_number,omitempty"`
	NagadNumber string `json:"nagad_number,omitempty"`
	BkashQRURL  string `json:"bkash_qr_url,omitempty"`
	NagadQRURL  string `json:"nagad_qr_url,omitempty"`
}

// DonationRequest is the public hadiya report form.
type DonationRequest struct {
	DonorName     string        `json:"donor_name"`
	DonorPhone    string        `json:"donor_phone"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id"`
	Amount        *float64      `json:"amount"`
}

// ReviewRequest moves a pending record to verified or rejected.
type ReviewRequest struct {
	Status    ReviewStatus `json:"status" validate:"required,oneof=verified rejected"`
	AdminNote *string      `json:"admin_note"`
}
