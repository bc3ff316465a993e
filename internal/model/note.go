package model

import "time"

// DefaultNoteColor is the pale yellow used when a note is created without a color.
const DefaultNoteColor = "#fff8e1"

// StickyNote is a free-form note pinned to the wall.
type StickyNote struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	Position  Position  `json:"position"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Position is the note's location on the wall.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CreateNoteRequest represents the request body for creating a note.
// Content must be present but may be empty.
type CreateNoteRequest struct {
	Content  *string   `json:"content"`
	Color    string    `json:"color,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// Normalize checks presence of content and fills defaults.
func (r *CreateNoteRequest) Normalize() error {
	if r.Content == nil {
		return ErrContentRequired
	}
	if r.Color == "" {
		r.Color = DefaultNoteColor
	}
	if r.Position == nil {
		r.Position = &Position{}
	}
	return nil
}

// UpdateNoteRequest is a partial update. An empty color keeps the stored one.
type UpdateNoteRequest struct {
	Content  *string   `json:"content,omitempty"`
	Color    string    `json:"color,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// Apply copies every supplied field onto n.
func (r *UpdateNoteRequest) Apply(n *StickyNote) {
	if r.Content != nil {
		n.Content = *r.Content
	}
	if r.Color != "" {
		n.Color = r.Color
	}
	if r.Position != nil {
		n.Position = *r.Position
	}
}
