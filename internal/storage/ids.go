package storage

import "github.com/google/uuid"

// NewID generates an opaque identifier. UUIDs are suggested by §3; any
// opaque string satisfies the contract.
func NewID() string {
	return uuid.NewString()
}
