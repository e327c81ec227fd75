package emoji

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultTable []byte

// Rule maps any of its keywords to Emoji.
type Rule struct {
	Emoji    string   `yaml:"emoji"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered keyword table. The first matching rule wins;
// Defaults are drawn from at random when nothing matches.
type Table struct {
	Defaults []string `yaml:"defaults"`
	Rules    []Rule   `yaml:"rules"`
}

// ParseTable decodes a YAML table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	if len(t.Defaults) == 0 {
		return Table{}, fmt.Errorf("%w: no defaults", ErrInvalidTable)
	}
	for i, r := range t.Rules {
		if r.Emoji == "" || len(r.Keywords) == 0 {
			return Table{}, fmt.Errorf("%w: rule %d needs an emoji and keywords", ErrInvalidTable, i)
		}
	}
	return t, nil
}

// LoadTable reads a YAML table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	return ParseTable(data)
}

// DefaultTable returns the built-in table.
func DefaultTable() Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}

// Keyword suggests emoji by looking words of the input up in a Table.
type Keyword struct {
	index    map[string]string
	phrases  []phrase
	defaults []string

	mu  sync.Mutex
	rnd *rand.Rand
}

type phrase struct {
	words []string
	emoji string
}

// KeywordOption configures a Keyword suggester.
type KeywordOption func(*Keyword)

// WithRand sets the source used to pick a default emoji.
func WithRand(r *rand.Rand) KeywordOption {
	return func(k *Keyword) { k.rnd = r }
}

// NewKeyword creates a Keyword suggester from t.
func NewKeyword(t Table, opts ...KeywordOption) *Keyword {
	k := &Keyword{
		index:    make(map[string]string),
		defaults: t.Defaults,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	// Earlier rules take precedence, so a keyword is bound only once.
	for _, r := range t.Rules {
		for _, kw := range r.Keywords {
			words := tokenize(kw)
			switch len(words) {
			case 0:
				continue
			case 1:
				if _, ok := k.index[words[0]]; !ok {
					k.index[words[0]] = r.Emoji
				}
			default:
				k.phrases = append(k.phrases, phrase{words: words, emoji: r.Emoji})
			}
		}
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Suggest returns the emoji of the first word of name, then description,
// found in the table, or a random default.
func (k *Keyword) Suggest(ctx context.Context, name, description string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateInput(name, description); err != nil {
		return "", err
	}

	for _, text := range []string{name, description} {
		words := tokenize(text)
		if e, ok := k.matchPhrase(words); ok {
			return e, nil
		}
		for _, w := range words {
			if e, ok := k.index[w]; ok {
				return e, nil
			}
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.defaults[k.rnd.IntN(len(k.defaults))], nil
}

func (k *Keyword) matchPhrase(words []string) (string, bool) {
	for _, p := range k.phrases {
		for i := 0; i+len(p.words) <= len(words); i++ {
			if equalWords(words[i:i+len(p.words)], p.words) {
				return p.emoji, true
			}
		}
	}
	return "", false
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// tokenize case-folds s and splits it into letter and digit runs.
func tokenize(s string) []string {
	folded := cases.Fold().String(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
