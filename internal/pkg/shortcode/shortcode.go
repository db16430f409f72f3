// Package shortcode generates the room codes operators read out loud and
// type into viewers: the first segment of a UUIDv4, eight hex characters.
package shortcode

import (
	"strings"

	"github.com/google/uuid"
)

func New() string {
	id := uuid.NewString()

	return strings.SplitN(id, "-", 2)[0]
}
