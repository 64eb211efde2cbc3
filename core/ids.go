package core

import (
	"strings"

	"drocsid/utils"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID with the given prefix.
// The format is: prefix_ULID
// Example: core.NewID("nonce") returns "nonce_01G0EZ1XTM37C5X11SQTDNCTM1"
func NewID(prefix string) string {
	utils.AssertInvariant(strings.TrimSpace(prefix) != "", "prefix cannot be empty")

	return strings.ToLower(strings.TrimSpace(prefix)) + "_" + ulid.Make().String()
}

// CompareIDs orders server-assigned ids. Ids are decimal snowflakes, so a longer id
// is always newer and equal-length ids compare lexically. The empty id sorts first.
func CompareIDs(a, b string) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return strings.Compare(a, b)
}

// IsNewer reports whether candidate is strictly newer than current
func IsNewer(candidate, current string) bool {
	return CompareIDs(candidate, current) > 0
}

// MaxID returns the newest of the given ids
func MaxID(ids ...string) string {
	max := ""
	for _, id := range ids {
		if IsNewer(id, max) {
			max = id
		}
	}
	return max
}
