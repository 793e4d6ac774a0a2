package controller

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/themesync/internal/theme"
)

// Cause records why the cached theme changed.
type Cause string

const (
	// CauseSet is an explicit Set or Update call.
	CauseSet Cause = "set"
	// CauseReconcile is a surface mutation made outside the controller.
	CauseReconcile Cause = "reconcile"
	// CauseDevice is an operating system preference change.
	CauseDevice Cause = "device"
)

// Change describes a transition of the cached theme.
type Change struct {
	ID    string
	From  theme.Theme
	To    theme.Theme
	Cause Cause
	At    time.Time
}

func newChange(from, to theme.Theme, cause Cause) Change {
	now := time.Now()
	c := Change{From: from, To: to, Cause: cause, At: now}
	if id, err := ulid.New(ulid.Timestamp(now), rand.Reader); err == nil {
		c.ID = id.String()
	}
	return c
}
