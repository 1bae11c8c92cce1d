// Package lifecycle holds the pure policy functions that decide whether a
// snippet may be rendered and how expiry timestamps are computed.
//
// Nothing in here touches the database or the clock; callers pass "now" in.
// That keeps every rule testable with plain function calls and makes the
// gated read path in the repository trivially auditable: it calls
// CheckVisibility and either proceeds or doesn't.
package lifecycle

import (
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/Xeven777/flyo/internal/model"
)

// Visibility is the outcome of evaluating a snippet's lifecycle state.
type Visibility int

const (
	Visible Visibility = iota
	Expired
	Disabled
)

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Expired:
		return "expired"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// CheckVisibility reports whether a snippet may be rendered at the given
// instant.
//
// The disabled check runs first: a disabled snippet reports Disabled even if
// its expiry has also passed, because the caller's remedy (re-enable it) has
// nothing to do with expiry. Expiry is inclusive of the deadline itself:
// a snippet is still visible at exactly ExpiresAt.
//
// Visibility only gates rendering. Edit lookups bypass this entirely, so
// authors can always load a disabled or expired snippet to fix it.
func CheckVisibility(s *model.Snippet, now time.Time) Visibility {
	if s.IsDisabled {
		return Disabled
	}
	if s.ExpiresAt.Valid && now.After(s.ExpiresAt.Time) {
		return Expired
	}
	return Visible
}

// Unit is the granularity of a user-supplied expiry duration.
type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
)

// Valid reports whether the unit is one this application accepts.
func (u Unit) Valid() bool {
	return u == UnitHours || u == UnitDays
}

// Duration converts a quantity in this unit to a time.Duration.
func (u Unit) Duration(quantity int) time.Duration {
	switch u {
	case UnitHours:
		return time.Duration(quantity) * time.Hour
	default:
		return time.Duration(quantity) * 24 * time.Hour
	}
}

// ExpiryFrom computes the expiry timestamp for a quantity/unit pair.
// A quantity of zero or less means "never expires" and yields a null time.
// A positive quantity always produces now + quantity*unit; callers that
// apply this on update therefore replace, never extend, the prior expiry.
func ExpiryFrom(quantity int, unit Unit, now time.Time) null.Time {
	if quantity <= 0 {
		return null.Time{}
	}
	return null.TimeFrom(now.Add(unit.Duration(quantity)))
}
