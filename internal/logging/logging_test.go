package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDebugSetsIsDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	Init()
	assert.True(t, IsDebug())
}

func TestInitNonDebugLevelLeavesDebugFalse(t *testing.T) {
	debugEnabled = false
	t.Setenv("LOG_LEVEL", "warn")
	Init()
	assert.False(t, IsDebug())
}
