package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/diag"
)

func TestExitBucketForCode(t *testing.T) {
	tests := []struct {
		code diag.Code
		want bundle.ExitBucket
	}{
		{diag.Code("SANS_PARSE_UNSUPPORTED_STATEMENT"), bundle.ExitParseRefusal},
		{diag.Code("SANS_PARSE_LOOP_BOUND_UNSUPPORTED"), bundle.ExitParseRefusal},
		{diag.Code("SANS_VALIDATE_CYCLE"), bundle.ExitValidateRefusal},
		{diag.Code("SANS_RUNTIME_LOOP_LIMIT"), bundle.ExitValidateRefusal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, exitBucketForCode(tt.code))
		})
	}
}

func TestClassifyBag_Empty(t *testing.T) {
	bucket, primary, warnings := classifyBag(&diag.Bag{})
	assert.Equal(t, bundle.ExitOK, bucket)
	assert.Nil(t, primary)
	assert.Empty(t, warnings)
}

func TestClassifyBag_WarningsOnly(t *testing.T) {
	bag := &diag.Bag{}
	bag.Add(diag.Warn("SANS_PARSE_DEPRECATED_SYNTAX", "deprecated", nil))
	bag.Add(diag.Warn("SANS_PARSE_DEPRECATED_SYNTAX", "deprecated again", nil))
	bucket, primary, warnings := classifyBag(bag)
	assert.Equal(t, bundle.ExitWarningsOnly, bucket)
	assert.Nil(t, primary)
	assert.Len(t, warnings, 2)
}

func TestClassifyBag_FirstFatalWins(t *testing.T) {
	bag := &diag.Bag{}
	bag.Add(diag.Warn("SANS_PARSE_DEPRECATED_SYNTAX", "deprecated", nil))
	bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "nope", nil))
	bag.Add(diag.New(diag.ESansRuntimeLoopLimit, "also fatal, never reached", nil))
	bucket, primary, warnings := classifyBag(bag)
	require.NotNil(t, primary)
	assert.Equal(t, diag.ESansParseUnsupportedStatement, primary.Code)
	assert.Equal(t, bundle.ExitParseRefusal, bucket)
	assert.Len(t, warnings, 1)
}
