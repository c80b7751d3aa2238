package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrSectionIndex is returned when a move references a position outside the order.
	ErrSectionIndex = errors.New("section index out of range")
	// ErrSectionTitleRequired is returned when a custom section has no title.
	ErrSectionTitleRequired = errors.New("section title is required")
	// ErrBuiltinSection is returned when a custom-only action targets a builtin key.
	ErrBuiltinSection = errors.New("builtin sections cannot be edited or removed")
	// ErrSectionNotFound is returned when no custom section has the given id.
	ErrSectionNotFound = errors.New("custom section not found")
	// ErrSectionLink is returned for button links that are neither site routes nor http(s) URLs.
	ErrSectionLink = errors.New("button link must start with / or http(s)://")
)

// LayoutError describes a broken order/custom section pairing.
type LayoutError struct {
	Key    string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("section %q: %s", e.Key, e.Reason)
}

// SectionLayout is an editable copy of the homepage order and its custom sections.
type SectionLayout struct {
	Order   []string        `json:"order"`
	Customs []CustomSection `json:"custom_sections"`
}

// NewSectionLayout copies the given lists into a new layout.
func NewSectionLayout(order []string, customs []CustomSection) SectionLayout {
	l := SectionLayout{
		Order:   make([]string, len(order)),
		Customs: make([]CustomSection, len(customs)),
	}
	copy(l.Order, order)
	copy(l.Customs, customs)
	return l
}

// ParseSectionLayout builds a layout from the two raw setting values.
func ParseSectionLayout(rawOrder, rawCustoms string) SectionLayout {
	return NewSectionLayout(ParseOrder(rawOrder), ParseCustomSections(rawCustoms))
}

// Clone returns a deep copy.
func (l SectionLayout) Clone() SectionLayout {
	return NewSectionLayout(l.Order, l.Customs)
}

// Move removes the key at from and re-inserts it at to. Every other key keeps its
// relative position.
func (l *SectionLayout) Move(from, to int) error {
	n := len(l.Order)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrSectionIndex
	}
	if from == to {
		return nil
	}
	key := l.Order[from]
	rest := make([]string, 0, n)
	rest = append(rest, l.Order[:from]...)
	rest = append(rest, l.Order[from+1:]...)

	out := make([]string, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, key)
	out = append(out, rest[to:]...)
	l.Order = out
	return nil
}

// AddCustom appends a new custom section to both lists and returns it with its id.
func (l *SectionLayout) AddCustom(meta CustomSection, now time.Time) (CustomSection, error) {
	meta = normalizeCustom(meta)
	if err := checkCustom(meta); err != nil {
		return CustomSection{}, err
	}
	id := NewCustomSectionID(now)
	for l.hasKey(id) {
		now = now.Add(time.Millisecond)
		id = NewCustomSectionID(now)
	}
	meta.ID = id
	l.Customs = append(l.Customs, meta)
	l.Order = append(l.Order, id)
	return meta, nil
}

// UpdateCustom replaces the record with meta.ID in place; its position is unchanged.
func (l *SectionLayout) UpdateCustom(meta CustomSection) error {
	if IsBuiltinSection(meta.ID) {
		return ErrBuiltinSection
	}
	meta = normalizeCustom(meta)
	if err := checkCustom(meta); err != nil {
		return err
	}
	idx := l.customIndex(meta.ID)
	if idx < 0 {
		return ErrSectionNotFound
	}
	l.Customs[idx] = meta
	return nil
}

// RemoveCustom deletes the section from both lists and returns the removed record.
// A custom key left in Order without a record is dropped and an empty record returned.
func (l *SectionLayout) RemoveCustom(id string) (CustomSection, error) {
	if IsBuiltinSection(id) {
		return CustomSection{}, ErrBuiltinSection
	}
	idx := l.customIndex(id)
	if idx < 0 && !l.hasKey(id) {
		return CustomSection{}, ErrSectionNotFound
	}

	var removed CustomSection
	if idx >= 0 {
		removed = l.Customs[idx]
		customs := make([]CustomSection, 0, len(l.Customs)-1)
		customs = append(customs, l.Customs[:idx]...)
		customs = append(customs, l.Customs[idx+1:]...)
		l.Customs = customs
	}

	order := make([]string, 0, len(l.Order))
	for _, key := range l.Order {
		if key != id {
			order = append(order, key)
		}
	}
	l.Order = order
	return removed, nil
}

// Custom returns the custom section with the given id.
func (l SectionLayout) Custom(id string) (CustomSection, bool) {
	if idx := l.customIndex(id); idx >= 0 {
		return l.Customs[idx], true
	}
	return CustomSection{}, false
}

// Validate checks that every non-builtin key has a custom record and every custom
// record appears exactly once in the order. Repeated builtin keys are allowed.
func (l SectionLayout) Validate() error {
	if len(l.Order) == 0 {
		return &LayoutError{Reason: "order must contain at least one section"}
	}
	ids := make(map[string]bool, len(l.Customs))
	for _, c := range l.Customs {
		if c.ID == "" || IsBuiltinSection(c.ID) {
			return &LayoutError{Key: c.ID, Reason: "invalid custom section id"}
		}
		if ids[c.ID] {
			return &LayoutError{Key: c.ID, Reason: "duplicate custom section"}
		}
		ids[c.ID] = true
	}
	seen := make(map[string]int, len(l.Order))
	for _, key := range l.Order {
		if IsBuiltinSection(key) {
			continue
		}
		if !ids[key] {
			return &LayoutError{Key: key, Reason: "no matching custom section"}
		}
		seen[key]++
		if seen[key] > 1 {
			return &LayoutError{Key: key, Reason: "appears more than once in order"}
		}
	}
	for id := range ids {
		if seen[id] == 0 {
			return &LayoutError{Key: id, Reason: "missing from order"}
		}
	}
	return nil
}

// SectionLabelView is one row of the editor's list.
type SectionLabelView struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Builtin bool   `json:"builtin"`
}

// Labels lists the order with display names.
func (l SectionLayout) Labels() []SectionLabelView {
	out := make([]SectionLabelView, 0, len(l.Order))
	for _, key := range l.Order {
		out = append(out, SectionLabelView{
			Key:     key,
			Label:   SectionLabel(key, l.Customs),
			Builtin: IsBuiltinSection(key),
		})
	}
	return out
}

// Encode serialises both lists for the settings store.
func (l SectionLayout) Encode() (order string, customs string, err error) {
	if order, err = EncodeOrder(l.Order); err != nil {
		return "", "", err
	}
	if customs, err = EncodeCustomSections(l.Customs); err != nil {
		return "", "", err
	}
	return order, customs, nil
}

func (l SectionLayout) customIndex(id string) int {
	for i, c := range l.Customs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (l SectionLayout) hasKey(key string) bool {
	if l.customIndex(key) >= 0 {
		return true
	}
	for _, k := range l.Order {
		if k == key {
			return true
		}
	}
	return false
}

func normalizeCustom(c CustomSection) CustomSection {
	c.Title = strings.TrimSpace(c.Title)
	c.Desc = strings.TrimSpace(c.Desc)
	c.ButtonText = strings.TrimSpace(c.ButtonText)
	c.ButtonLink = strings.TrimSpace(c.ButtonLink)
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	return c
}

func checkCustom(c CustomSection) error {
	if c.Title == "" {
		return ErrSectionTitleRequired
	}
	if c.ButtonLink != "" && !IsInternalLink(c.ButtonLink) && !IsExternalLink(c.ButtonLink) {
		return ErrSectionLink
	}
	return nil
}

// DragEventType names a pointer gesture step.
type DragEventType string

const (
	DragStart DragEventType = "start"
	DragEnter DragEventType = "enter"
	DragEnd   DragEventType = "end"
)

// DragEvent is one recorded gesture step.
type DragEvent struct {
	Type  DragEventType `json:"type" validate:"required,oneof=start enter end"`
	Index int           `json:"index" validate:"min=0"`
}

// DragSession tracks a drag gesture over the order list.
type DragSession struct {
	source *int
	target *int
}

// Start records the dragged index and forgets any previous target.
func (d *DragSession) Start(index int) {
	d.source = &index
	d.target = nil
}

// Enter records the index currently hovered.
func (d *DragSession) Enter(index int) {
	d.target = &index
}

// Active reports whether a drag is in progress.
func (d *DragSession) Active() bool {
	return d.source != nil
}

// End applies the move when both indices are known and clears the session.
// It reports whether the layout changed.
func (d *DragSession) End(l *SectionLayout) (bool, error) {
	defer func() {
		d.source = nil
		d.target = nil
	}()
	if d.source == nil || d.target == nil {
		return false, nil
	}
	if *d.source == *d.target {
		return false, nil
	}
	if err := l.Move(*d.source, *d.target); err != nil {
		return false, err
	}
	return true, nil
}

// Replay applies a recorded event sequence to the layout and returns the number of moves.
func (d *DragSession) Replay(l *SectionLayout, events []DragEvent) (int, error) {
	moves := 0
	for _, ev := range events {
		switch ev.Type {
		case DragStart:
			d.Start(ev.Index)
		case DragEnter:
			d.Enter(ev.Index)
		case DragEnd:
			moved, err := d.End(l)
			if err != nil {
				return moves, err
			}
			if moved {
				moves++
			}
		default:
			return moves, fmt.Errorf("unknown drag event %q", ev.Type)
		}
	}
	return moves, nil
}

// SectionEditor keeps a working layout in step with the stored setting strings.
type SectionEditor struct {
	Layout SectionLayout

	lastOrder   string
	lastCustoms string
	seeded      bool
}

// Sync re-seeds the working copy when either stored string differs from the last one
// seen. It reports whether a re-seed happened.
func (e *SectionEditor) Sync(rawOrder, rawCustoms string) bool {
	if e.seeded && rawOrder == e.lastOrder && rawCustoms == e.lastCustoms {
		return false
	}
	e.Layout = ParseSectionLayout(rawOrder, rawCustoms)
	e.lastOrder = rawOrder
	e.lastCustoms = rawCustoms
	e.seeded = true
	return true
}

// Rebase moves the baseline Sync compares against without touching the working copy.
func (e *SectionEditor) Rebase(rawOrder, rawCustoms string) {
	e.lastOrder = rawOrder
	e.lastCustoms = rawCustoms
	e.seeded = true
}
