package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverridesOnlyGivenFields(t *testing.T) {
	cfg, err := Parse([]byte("sample_cap: 500\n"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SampleCap)
	assert.Equal(t, Default().UniqueCap, cfg.UniqueCap)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("not_a_real_field: 1\n"))
	assert.Error(t, err)
}

func TestEvidenceProjection(t *testing.T) {
	cfg, err := Parse([]byte("topk: 3\n"))
	require.NoError(t, err)
	ev := cfg.Evidence()
	assert.Equal(t, 3, ev.TopK)
	assert.Equal(t, Default().SampleCap, ev.SampleCap)
}
