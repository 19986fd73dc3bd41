package commands

import (
	"testing"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"lang:go", "lang:rust", "kind:guide", "lang:go"})
	require.NoError(t, err)
	assert.Equal(t, models.Filters{"lang": {"go", "rust"}, "kind": {"guide"}}, filters)

	_, err = parseFilters([]string{"lang"})
	assert.Error(t, err)
	_, err = parseFilters([]string{":go"})
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"index", "search", "serve", "mcp", "sessions"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("index"))
}
