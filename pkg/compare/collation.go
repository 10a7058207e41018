// Package compare implements the pluggable atomic-value comparison
// framework: collation-aware string comparison, type-driven ordering and
// equality, and text-coercing comparison, used by sort keys, equality
// operators and memo-function keys.
package compare

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// CodepointCollationURI names the default collation: NFC-normalized
// codepoint comparison.
const CodepointCollationURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"

// LanguageCollationPrefix is the URI prefix for language-tagged
// collations; the remainder of the URI is a BCP 47 tag, e.g.
// ".../collation/lang/da".
const LanguageCollationPrefix = "http://sequoia.perrin.dev/collation/lang/"

// StringCollator compares strings under one collation and can reduce a
// string to a collation key with the same equality notion.
type StringCollator interface {
	CompareStrings(a, b string) int
	CollationKey(s string) string
}

// codepointCollator compares NFC-normalized strings by codepoint.
type codepointCollator struct{}

// Codepoint returns the default codepoint collator.
func Codepoint() StringCollator { return codepointCollator{} }

func (codepointCollator) CompareStrings(a, b string) int {
	return strings.Compare(norm.NFC.String(a), norm.NFC.String(b))
}

func (codepointCollator) CollationKey(s string) string { return norm.NFC.String(s) }

// languageCollator is backed by an x/text collator for a language tag.
// collate.Collator is not safe for concurrent use, so each instance is
// owned by one evaluation.
type languageCollator struct {
	c   *collate.Collator
	buf collate.Buffer
}

// ForLanguage returns a collator ordering strings per the conventions of
// the given language.
func ForLanguage(tag language.Tag) StringCollator {
	return &languageCollator{c: collate.New(tag)}
}

func (l *languageCollator) CompareStrings(a, b string) int {
	return l.c.CompareString(a, b)
}

func (l *languageCollator) CollationKey(s string) string {
	l.buf.Reset()
	return string(l.c.KeyFromString(&l.buf, s))
}

// ResolveCollation maps a collation URI to a collator. The empty URI
// resolves to the codepoint collation.
func ResolveCollation(uri string) (StringCollator, error) {
	switch {
	case uri == "" || uri == CodepointCollationURI:
		return Codepoint(), nil
	case strings.HasPrefix(uri, LanguageCollationPrefix):
		tag, err := language.Parse(strings.TrimPrefix(uri, LanguageCollationPrefix))
		if err != nil {
			return nil, types.NewDynamicError(types.ErrUnknownCollation,
				"unknown collation "+uri)
		}
		return ForLanguage(tag), nil
	}
	return nil, types.NewDynamicError(types.ErrUnknownCollation,
		"unknown collation "+uri)
}
