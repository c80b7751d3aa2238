package models

import "time"

// JoinType distinguishes free and paid WhatsApp group requests.
type JoinType string

const (
	JoinFree JoinType = "free"
	JoinPaid JoinType = "paid"
)

// Valid reports whether the join type is known.
func (t JoinType) Valid() bool {
	return t == JoinFree || t == JoinPaid
}

// WhatsAppJoin is a request to join the course group.
type WhatsAppJoin struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Phone     string       `db:"phone" json:"phone"`
	JoinType  JoinType     `db:"join_type" json:"join_type"`
	Status    ReviewStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// WhatsAppJoinResult is returned to the requester; free joins get the link immediately.
type WhatsAppJoinResult struct {
	Join         WhatsAppJoin `json:"join"`
	GroupLink    string       `json:"group_link,omitempty"`
	DonationLink string       `json:"donation_link,omitempty"`
}

// WhatsAppJoinRequest is the public join form.
type WhatsAppJoinRequest struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	JoinType JoinType `json:"join_type"`
}
