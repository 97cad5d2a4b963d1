package github

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url     string
		owner   string
		name    string
		wantErr bool
	}{
		{"https://github.com/acme/shop", "acme", "shop", false},
		{"https://github.com/acme/shop/", "acme", "shop", false},
		{"https://github.com/acme/shop.git", "acme", "shop", false},
		{"  https://github.com/acme/shop  ", "acme", "shop", false},
		{"https://github.com/acme/shop/tree/main", "acme", "shop", false},
		{"https://github.com/acme", "", "", true},
		{"https://github.com/", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		owner, name, err := ParseRepoURL(tt.url)
		if tt.wantErr {
			assert.Error(t, err, "url: %q", tt.url)
			continue
		}
		require.NoError(t, err, "url: %q", tt.url)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.name, name)
	}
}

func TestNewConnector_Defaults(t *testing.T) {
	c := NewConnector("", &common.GitHubConfig{}, common.GetLogger())
	require.NotNil(t, c)
	assert.NotNil(t, c.client)
	assert.NotNil(t, c.limiter)
}

func TestMapError_PassthroughSentinels(t *testing.T) {
	assert.True(t, errors.Is(mapError(interfaces.ErrRepoNotFound), interfaces.ErrRepoNotFound))
	err := errors.New("plain")
	assert.Equal(t, err, mapError(err))
}
