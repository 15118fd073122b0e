// Package uuid wraps google/uuid so that IDs can be bound from query
// strings and URI parameters.
package uuid

import (
	google_uuid "github.com/google/uuid"
)

type UUID struct {
	google_uuid.UUID
}

var Nil UUID

// Parse parses an ID. The empty string is the Nil ID.
func Parse(s string) (UUID, error) {
	var u UUID
	err := u.UnmarshalParam(s)
	return u, err
}

// UnmarshalParam implements gin's binding.BindUnmarshaler.
func (u *UUID) UnmarshalParam(p string) error {
	if p == "" {
		*u = Nil
		return nil
	}

	parsed, e := google_uuid.Parse(p)
	if e != nil {
		return e
	}

	*u = UUID{parsed}
	return nil
}

// Ptr returns a pointer to the ID, nil for the Nil ID.
//
// Optional references in query filters are bound as UUID and compared as pointers.
func (u UUID) Ptr() *google_uuid.UUID {
	if u == Nil {
		return nil
	}

	id := u.UUID
	return &id
}
