package emoji_test

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/svc/emoji"
)

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	table := emoji.DefaultTable()
	assert.NotEmpty(t, table.Defaults)
	assert.NotEmpty(t, table.Rules)
}

func TestKeyword_Suggest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	k := emoji.NewKeyword(emoji.DefaultTable())

	tests := []struct {
		name        string
		group       string
		description string
		want        string
	}{
		{name: "name keyword", group: "Sunday Football", want: "⚽"},
		{name: "case folded", group: "MUSIC lovers", want: "🎵"},
		{name: "description keyword", group: "The Crew", description: "we talk about coffee", want: "☕"},
		{name: "name wins over description", group: "Book club", description: "and pizza", want: "📚"},
		{name: "punctuation ignored", group: "#gaming!", want: "🎮"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := k.Suggest(ctx, tt.group, tt.description)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyword_RandomDefault(t *testing.T) {
	t.Parallel()

	table := emoji.Table{Defaults: []string{"🅰", "🅱"}}
	k := emoji.NewKeyword(table, emoji.WithRand(rand.New(rand.NewPCG(1, 2))))

	seen := map[string]bool{}
	for range 50 {
		got, err := k.Suggest(context.Background(), "zzz", "")
		require.NoError(t, err)
		assert.Contains(t, table.Defaults, got)
		seen[got] = true
	}
	assert.Len(t, seen, 2)
}

func TestKeyword_Phrase(t *testing.T) {
	t.Parallel()

	k := emoji.NewKeyword(emoji.Table{
		Defaults: []string{"❔"},
		Rules: []emoji.Rule{
			{Emoji: "🍷", Keywords: []string{"wine tasting"}},
			{Emoji: "🍇", Keywords: []string{"wine"}},
		},
	})

	got, err := k.Suggest(context.Background(), "Wine Tasting night", "")
	require.NoError(t, err)
	assert.Equal(t, "🍷", got)

	got, err = k.Suggest(context.Background(), "wine lovers", "")
	require.NoError(t, err)
	assert.Equal(t, "🍇", got)
}

func TestKeyword_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := emoji.NewKeyword(emoji.DefaultTable()).Suggest(context.Background(), " ", "")
	assert.ErrorIs(t, err, emoji.ErrEmptyInput)
}

func TestParseTable(t *testing.T) {
	t.Parallel()

	_, err := emoji.ParseTable([]byte("rules: []"))
	assert.ErrorIs(t, err, emoji.ErrInvalidTable)

	_, err = emoji.ParseTable([]byte("defaults: [x]\nrules:\n  - emoji: \"\"\n    keywords: [a]\n"))
	assert.ErrorIs(t, err, emoji.ErrInvalidTable)

	_, err = emoji.ParseTable([]byte("defaults: [x"))
	assert.ErrorIs(t, err, emoji.ErrInvalidTable)

	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults: [\"🙂\"]\nrules:\n  - emoji: \"🐶\"\n    keywords: [dogs]\n"), 0o600))
	table, err := emoji.LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []emoji.Rule{{Emoji: "🐶", Keywords: []string{"dogs"}}}, table.Rules)
}
