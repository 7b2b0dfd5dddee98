package debugdump

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sans-lang/sans/internal/logging"
)

func TestDumpNoopWhenNotDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	logging.Init()
	assert.NotPanics(t, func() { Dump("x", map[string]any{"a": 1}) })
}

func TestDumpWritesWhenDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logging.Init()

	r, w, err := os.Pipe()
	assert.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	Dump("step", map[string]any{"id": "s1"})
	w.Close()

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	assert.Contains(t, string(buf[:n]), "step:")
}
