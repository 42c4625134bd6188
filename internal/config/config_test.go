package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 90, cfg.TitleMaxRunes)
	assert.Equal(t, 92, cfg.SimilarityThreshold)
}

func TestLoadRejectsTinyTitleCap(t *testing.T) {
	t.Setenv("TITLE_MAX_RUNES", "1")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("REWRITE_PROVIDER", "llama")
	_, err := Load()
	assert.Error(t, err)
}
