// Package idgen generates short attempt IDs backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// AttemptPrefix is prepended to every attempt ID.
const AttemptPrefix = "att-"

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// Generate returns a new attempt ID.
func Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return AttemptPrefix + id, nil
}

// Attempt returns a new attempt ID and never fails: if the random source is
// unavailable (early boot without entropy) it falls back to a timestamp, so
// the attempt is still recorded.
func Attempt(now time.Time) string {
	if id, err := Generate(); err == nil {
		return id
	}
	return AttemptPrefix + "t" + strconv.FormatInt(now.UnixNano(), 36)
}
