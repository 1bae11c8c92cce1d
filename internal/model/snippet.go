// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data; similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// Snippet is the single entity this application stores: an HTML fragment with
// optional CSS and JS, addressed publicly by its slug.
//
// NULLABLE FIELDS:
// CSS and JS use null.String instead of plain string because "not supplied"
// and "supplied but empty" are different things here; both render identically,
// but an editor loading the snippet back needs to know which one it was.
// null.String scans straight out of database/sql and marshals as JSON null,
// so the distinction survives a full round trip.
//
// The same applies to ExpiresAt (null = never expires) and LastViewedAt
// (null until the first successful preview).
type Snippet struct {
	ID           string      `json:"id"`
	Slug         string      `json:"slug"`
	Title        string      `json:"title"`
	HTML         string      `json:"html"`
	CSS          null.String `json:"css"`
	JS           null.String `json:"js"`
	Views        int64       `json:"views"`
	LastViewedAt null.Time   `json:"lastViewedAt"`
	IsDisabled   bool        `json:"isDisabled"`
	ExpiresAt    null.Time   `json:"expiresAt"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
