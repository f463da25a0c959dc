// internal/models/conn.go
package models

import "github.com/google/uuid"

// ConnID identifies one live client connection. A member of a room is keyed by
// the ConnID of the connection that joined it.
type ConnID string

// NewConnID allocates a fresh random connection identity.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (id ConnID) String() string {
	return string(id)
}
