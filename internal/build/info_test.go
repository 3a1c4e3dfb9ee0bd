package build

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "v1.0.0"

	info := Get()
	assert.Equal(t, "v1.0.0", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "v1.0.0 (commit unknown, built unknown)", String())
}
