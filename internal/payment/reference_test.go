package payment

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferenceFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^WN-\d{13,}-\d{6}$`)

	for i := 0; i < 100; i++ {
		ref := GenerateReference()
		assert.Regexp(t, pattern, ref)
	}
}

func TestGenerateReferenceUniqueness(t *testing.T) {
	const n = 100000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref := GenerateReference()
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s after %d generations", ref, i)
		seen[ref] = struct{}{}
	}
}
