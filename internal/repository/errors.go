package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or belongs to another organization.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyLinked means the conditional link update found the transaction already matched.
	ErrAlreadyLinked = errors.New("transaction already linked to a payment")

	// ErrNotLinked means the conditional unlink update found no link to clear.
	ErrNotLinked = errors.New("transaction not linked to the payment")
)
