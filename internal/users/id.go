package users

import "github.com/google/uuid"

// NewAccountID issues a fresh submitter account identifier.
func NewAccountID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails when the entropy source does; fall back to v4
		// which panics in the same situation.
		return uuid.NewString()
	}
	return id.String()
}
