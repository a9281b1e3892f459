package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// NotFoundError reports that a referenced author, alias or origin does not
// exist. No state change has occurred when it is returned.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports that a requested transition violates an alias
// invariant. No partial state change has occurred when it is returned.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ValidationError reports missing or malformed input, detected before any
// store access.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Sentinels for querying the wrong accessor for an author's alias state.
var (
	ErrNotCombinedAlias = errors.New("author is not a combined alias")
	ErrNotOriginAuthor  = errors.New("author is not an original author")
)

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// authorNotFound converts a repository lookup error into the service
// taxonomy, keeping unexpected storage errors intact.
func authorNotFound(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "author", ID: id}
	}
	return err
}
