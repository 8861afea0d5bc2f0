package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Footprint is the stable anonymous visitor identifier used to correlate
// consent records across page loads and cooperating domains.
type Footprint string

const footprintPrefix = "ESB-"

var footprintPattern = regexp.MustCompile(`^ESB-[0-9A-Z]{8}$`)

// NewFootprint derives a footprint from a random UUID.
func NewFootprint() Footprint {
	return FootprintFromUUID(uuid.New())
}

// FootprintFromUUID derives the footprint for a given UUID.
func FootprintFromUUID(id uuid.UUID) Footprint {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return Footprint(footprintPrefix + strings.ToUpper(hex[:8]))
}

// IsWellFormed reports whether f matches the generated format. Malformed
// stored values are still honoured; this is informational only.
func (f Footprint) IsWellFormed() bool {
	return footprintPattern.MatchString(string(f))
}

func (f Footprint) String() string {
	return string(f)
}
