package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := GitCommit
	defer func() { GitCommit = old }()

	GitCommit = "abc1234"
	assert.Equal(t, Release+"+abc1234", String())
}
