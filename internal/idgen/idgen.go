// Package idgen generates the short correlation ids attached to reaction
// events, command invocations and published bus events.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes distinguish what an id was minted for when it shows up in logs.
const (
	ReactionPrefix = "rx-"
	CommandPrefix  = "cmd-"
	ExportPrefix   = "exp-"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 10

// Generate returns a new id for a reaction event.
func Generate() (string, error) {
	return GenerateWithPrefix(ReactionPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Correlation is GenerateWithPrefix for log correlation, where an id is
// nice to have but never worth failing the operation over.
func Correlation(prefix string) string {
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		return prefix + "unknown"
	}
	return id
}
