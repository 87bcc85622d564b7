package services

import (
	"errors"
	"fmt"
)

// Error families. Handlers match these with errors.Is; specific errors below
// wrap exactly one family.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrReportNotFound      = fmt.Errorf("report %w", ErrNotFound)
	ErrCommentNotFound     = fmt.Errorf("comment %w", ErrNotFound)
	ErrAbuseReportNotFound = fmt.Errorf("abuse report %w", ErrNotFound)
	ErrZoneNotFound        = fmt.Errorf("zone %w", ErrNotFound)

	ErrAlreadyReported = fmt.Errorf("%w: report already flagged by this user", ErrConflict)

	ErrNotPending = fmt.Errorf("%w: review is only allowed while pending", ErrInvalidState)
	ErrNotRemoved = fmt.Errorf("%w: report is not removed", ErrInvalidState)

	ErrInvalidCoordinates = fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	ErrInvalidDirection   = fmt.Errorf("%w: direction must be up or down", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("%w: status must be approved or rejected", ErrInvalidInput)

	ErrNotCommentAuthor = fmt.Errorf("%w: only the author or an admin can delete a comment", ErrForbidden)
)
