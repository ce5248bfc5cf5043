// Package id provides unique identifier generation for projects, frames and
// render jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	PrefixProject = "prj"
	PrefixFrame   = "frm"
	PrefixRender  = "rnd"
)

// Generate creates a new unique ID with the given prefix.
// Format: <prefix>-<uuidv7>
// Example: prj-01923f6e-8c1a-7b3e-9f2d-4c5b6a7d8e9f
//
// UUIDv7 keeps IDs time-sortable, so listing by ID follows creation order.
func Generate(prefix string) string {
	u, err := uuid.NewV7()
	if err != nil {
		return fallback(prefix)
	}
	return prefix + "-" + u.String()
}

// fallback builds a timestamp plus random suffix ID when the UUID source fails.
func fallback(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("%s-%d", prefix, timestamp)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, timestamp, hex.EncodeToString(random))
}
