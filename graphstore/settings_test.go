package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsOpen(t *testing.T) {
	_, err := Settings{}.Open(nil)
	assert.Error(t, err)

	s, err := Settings{URL: "https://cmem.example.org/dataplatform", Endpoint: "other"}.Open(nil)
	require.NoError(t, err)
	client, ok := s.(*Client)
	require.True(t, ok)
	assert.Equal(t, "other", client.endpoint)

	s, err = Settings{Local: &LocalSettings{Root: t.TempDir()}}.Open(nil)
	require.NoError(t, err)
	_, ok = s.(*LocalStore)
	assert.True(t, ok)
}
