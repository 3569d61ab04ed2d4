package storage

import "gorm.io/gorm/clause"

// onConflictDoNothing makes association inserts idempotent: re-associating
// an already-linked (agent, block) or (agent, tool) pair is a no-op rather
// than a unique-constraint error.
func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}
