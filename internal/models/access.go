package models

import (
	"errors"
	"strings"
	"time"
)

// AccessState is the state of a per-surah access dialog.
type AccessState string

const (
	AccessUnverified AccessState = "unverified"
	AccessVerifying  AccessState = "verifying"
	AccessVerified   AccessState = "verified"
)

var (
	// ErrEmptyIdentifier is returned when no learner identifier was supplied.
	ErrEmptyIdentifier = errors.New("identifier is required")
	// ErrAccessTransition is returned for a step that is not allowed in the current state.
	ErrAccessTransition = errors.New("invalid access dialog transition")
	// ErrIdentifierRejected records a falsy verification result.
	ErrIdentifierRejected = errors.New("identifier not verified")
)

// NormalizeIdentifier trims and upper-cases learner ids such as "qur-0001".
func NormalizeIdentifier(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// AccessDialog tracks one learner's attempt to unlock a surah.
type AccessDialog struct {
	State      AccessState
	Identifier string
	Err        error
}

// NewAccessDialog returns a dialog in the unverified state.
func NewAccessDialog() *AccessDialog {
	return &AccessDialog{State: AccessUnverified}
}

// Submit starts verification of a non-empty identifier.
func (d *AccessDialog) Submit(identifier string) error {
	if d.State != AccessUnverified {
		return ErrAccessTransition
	}
	id := NormalizeIdentifier(identifier)
	if id == "" {
		d.Err = ErrEmptyIdentifier
		return ErrEmptyIdentifier
	}
	d.Identifier = id
	d.Err = nil
	d.State = AccessVerifying
	return nil
}

// Resolve finishes verification. Any error or a false result returns the dialog to
// unverified with the failure kept in Err.
func (d *AccessDialog) Resolve(ok bool, err error) error {
	if d.State != AccessVerifying {
		return ErrAccessTransition
	}
	switch {
	case err != nil:
		d.State = AccessUnverified
		d.Err = err
	case !ok:
		d.State = AccessUnverified
		d.Err = ErrIdentifierRejected
	default:
		d.State = AccessVerified
		d.Err = nil
	}
	return nil
}

// Close resets the dialog.
func (d *AccessDialog) Close() {
	d.State = AccessUnverified
	d.Identifier = ""
	d.Err = nil
}

// GatedLink is one piece of gated content: either a URL or a placeholder.
type GatedLink struct {
	Available   bool       `json:"available"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// SurahAccess is returned once a learner has been verified for a surah.
type SurahAccess struct {
	State      AccessState `json:"state"`
	Identifier string      `json:"identifier"`
	Surah      Surah       `json:"surah"`
	PDF        GatedLink   `json:"pdf"`
	Exam       GatedLink   `json:"exam"`
}
