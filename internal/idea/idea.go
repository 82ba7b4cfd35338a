// Package idea defines idea cards and the conversions between their wire
// shape and the form-shaped draft an editor works on.
package idea

import (
	"fmt"
	"strings"

	"github.com/starford/ideacards/internal/apperr"
)

// Status is the lifecycle state of an idea.
type Status string

const (
	StatusActive   Status = "active"
	StatusExecute  Status = "execute"
	StatusTransfer Status = "transfer"
	StatusDeleted  Status = "deleted"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusActive, StatusExecute, StatusTransfer, StatusDeleted}

// ParseStatus normalises and validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// Validate reports whether s is one of Statuses.
func (s Status) Validate() error {
	for _, known := range Statuses {
		if s == known {
			return nil
		}
	}
	return fmt.Errorf("%w: status %q", apperr.ErrInvalid, string(s))
}

// IsTerminal reports whether no user-facing flow leads out of s.
func (s Status) IsTerminal() bool {
	return s == StatusDeleted
}

// CanMoveTo reports whether a user may move an idea from s to next. Nothing
// leaves deleted and nothing returns to active.
func (s Status) CanMoveTo(next Status) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if s.IsTerminal() || next == StatusActive {
		return fmt.Errorf("%w: %s idea cannot move to %s", apperr.ErrInvalid, s, next)
	}
	return nil
}

// StatusActions lists the statuses the editor offers as plain status
// changes. Deleting goes through its own action.
var StatusActions = []Status{StatusExecute, StatusTransfer}

func (s Status) String() string { return string(s) }

// Link is a display snapshot of another idea, not a live reference.
type Link struct {
	IdeaID int64    `json:"idea_id"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags"`
}

// Idea is the wire and storage shape of an idea card.
type Idea struct {
	IdeaID   int64    `json:"idea_id"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Status   Status   `json:"status"`
	Blockers []string `json:"blockers"`
	BornWith []Link   `json:"born_with"`
}

// Link returns the snapshot used when i is attached to another idea.
func (i Idea) Link() Link {
	return Link{IdeaID: i.IdeaID, Body: i.Body, Tags: NonNil(i.Tags)}
}

// BornWithIDs projects the born-with set to bare ids.
func (i Idea) BornWithIDs() []int64 {
	return linkIDs(i.BornWith)
}

// Payload is the body of create and update requests.
type Payload struct {
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
	Blockers    []string `json:"blockers"`
	BornWithIDs []int64  `json:"born_with_ids"`
}

// CreatePayload adds the initial status to a Payload. An empty status means
// active.
type CreatePayload struct {
	Payload
	Status Status `json:"status,omitempty"`
}

// NonNil returns s, or an empty slice when s is nil, so JSON encodes [].
func NonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func linkIDs(links []Link) []int64 {
	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.IdeaID)
	}
	return ids
}
