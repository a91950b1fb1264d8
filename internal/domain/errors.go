package domain

import (
	"errors"
	"fmt"
)

// MissingIDError reports a payload that lacks the identifying field for its
// kind. Not retryable: the event can never apply and is recorded as failed.
type MissingIDError struct {
	Kind EntityKind
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("%s payload missing id field", e.Kind)
}

// MissingDependencyError reports an upsert that references an entity not
// present in the mirror. Kind and ID name exactly what needs backfilling, so
// the resolver never has to guess from driver error text. Retryable once
// after the dependency has been resolved.
type MissingDependencyError struct {
	Kind EntityKind
	ID   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency: %s %s", e.Kind, e.ID)
}

// AsMissingDependency unwraps err to a MissingDependencyError if one is in
// the chain.
func AsMissingDependency(err error) (*MissingDependencyError, bool) {
	var missing *MissingDependencyError
	if errors.As(err, &missing) {
		return missing, true
	}
	return nil, false
}
