// Package ids generates unguessable identifiers for evaluation runs and
// correction events. Database rows use UUIDs; these IDs exist for artifacts
// that never touch the relational store.
package ids

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// New creates a cryptographically random ID with the given prefix.
// The prefix should include a trailing dash, e.g. "eval-", "corr-".
func New(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msgf("Failed to generate random %s ID", prefix)
	}
	return prefix + hex.EncodeToString(b)
}
