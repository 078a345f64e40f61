package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary_Stamped(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v1.2.0", "abc1234", "2024-03-01"

	assert.Equal(t, "v1.2.0 (commit: abc1234, built: 2024-03-01)", Summary())
}

func TestSummary_Unstamped(t *testing.T) {
	assert.Contains(t, Summary(), "built: unknown")
}
