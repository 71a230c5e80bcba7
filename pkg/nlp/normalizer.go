// Package nlp turns free text into normalized token strings for similarity scoring.
package nlp

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits lowercase text into candidate word tokens.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// Lemmatizer reduces a token to its dictionary base form.
type Lemmatizer interface {
	Lemma(word string) string
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) ([]string, error)

// Tokenize implements Tokenizer.
func (f TokenizerFunc) Tokenize(text string) ([]string, error) { return f(text) }

// LemmatizerFunc adapts a function to the Lemmatizer interface.
type LemmatizerFunc func(word string) string

// Lemma implements Lemmatizer.
func (f LemmatizerFunc) Lemma(word string) string { return f(word) }

// IdentityLemmatizer leaves tokens untouched.
var IdentityLemmatizer = LemmatizerFunc(func(word string) string { return word })

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// WordTokenizer extracts runs of letters and digits.
type WordTokenizer struct{}

// Tokenize implements Tokenizer.
func (WordTokenizer) Tokenize(text string) ([]string, error) {
	return wordPattern.FindAllString(text, -1), nil
}

// NewEnglishLemmatizer loads the golem English dictionary.
func NewEnglishLemmatizer() (Lemmatizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemmatizer: %w", err)
	}
	return lemmatizer, nil
}

// Option customises a Normalizer.
type Option func(*Normalizer)

// WithTokenizer replaces the default word tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(n *Normalizer) {
		if t != nil {
			n.tokenizer = t
		}
	}
}

// WithLemmatizer replaces the default lemmatizer.
func WithLemmatizer(l Lemmatizer) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.lemmatizer = l
		}
	}
}

// WithStopwords replaces the default English stopword set.
func WithStopwords(s StopwordSet) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.stopwords = s
		}
	}
}

// WithLogger attaches a logger used to report tokenizer fallbacks.
func WithLogger(logger zerolog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger.With().Str("component", "normalizer").Logger()
	}
}

// Normalizer lowercases, tokenizes, filters and lemmatizes text. It is safe for concurrent use
// as long as the injected dependencies are.
type Normalizer struct {
	tokenizer  Tokenizer
	lemmatizer Lemmatizer
	stopwords  StopwordSet
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// New constructs a Normalizer. Without WithLemmatizer the identity lemmatizer is used; callers
// wanting dictionary lemmas pass NewEnglishLemmatizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		tokenizer:  WordTokenizer{},
		lemmatizer: IdentityLemmatizer,
		stopwords:  EnglishStopwords(),
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Stopwords exposes the configured stopword set.
func (n *Normalizer) Stopwords() StopwordSet {
	return n.stopwords
}

// Normalize returns the space-joined normalized tokens of text. Empty output means the text is
// not scorable.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the normalized tokens of text in order of appearance.
func (n *Normalizer) Tokens(text string) []string {
	prepared := n.prepare(text)
	if prepared == "" {
		return nil
	}

	raw, err := n.tokenize(prepared)
	if err != nil {
		n.logger.Warn().Err(err).Msg("tokenizer failed, using whitespace fallback")
		raw = strings.Fields(prepared)
	}

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = stripNonLetters(tok)
		if tok == "" || n.stopwords.Contains(tok) {
			continue
		}
		lemma := strings.ToLower(n.lemmatizer.Lemma(tok))
		if lemma == "" || n.stopwords.Contains(lemma) {
			continue
		}
		tokens = append(tokens, lemma)
	}
	return tokens
}

// Keywords returns the distinct normalized tokens of text in alphabetical order.
func (n *Normalizer) Keywords(text string) []string {
	return Distinct(n.Tokens(text))
}

// Distinct returns the sorted set of tokens.
func Distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func (n *Normalizer) prepare(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if strings.ContainsRune(text, '<') {
		text = html.UnescapeString(n.sanitizer.Sanitize(text))
	}
	return strings.ToLower(norm.NFKC.String(text))
}

func (n *Normalizer) tokenize(text string) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	return n.tokenizer.Tokenize(text)
}

// stripNonLetters drops digits, punctuation and symbols from a token.
func stripNonLetters(tok string) string {
	clean := true
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			clean = false
			break
		}
	}
	if clean {
		return tok
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, tok)
}
