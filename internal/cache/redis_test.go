package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "geo:municipality:26:Recife", Key(26, " Recife "))
	assert.NotEqual(t, Key(26, "Recife"), Key(26, "recife"))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}
