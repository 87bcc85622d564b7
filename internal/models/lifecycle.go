package models

import "github.com/google/uuid"

// Lifecycle is the moderation state of a report or comment. Content is never
// hard-deleted; removal is a state transition.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleRemoved Lifecycle = "removed"
)

// ReviewStatus is shared by report submissions and abuse reports. Transitions
// out of pending are one-shot.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// assignID gives a row a UUID before insert so the schema does not depend on
// database-side generators.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
