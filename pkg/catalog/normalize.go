package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms a string into its comparison key.
type Normalizer func(string) string

// stripAccents returns a fresh decomposition chain; a transform.Chain keeps
// buffers and must not be shared between goroutines.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// vietnameseFolds lists every precomposed lowercase form of the Vietnamese
// script by the base Latin letter it folds to. Uppercase forms are derived.
var vietnameseFolds = map[rune]string{
	'a': "àáảãạăằắẳẵặâầấẩẫậ",
	'e': "èéẻẽẹêềếểễệ",
	'i': "ìíỉĩị",
	'o': "òóỏõọôồốổỗộơờớởỡợ",
	'u': "ùúủũụưừứửữự",
	'y': "ỳýỷỹỵ",
	'd': "đ",
}

var vietnameseReplacer = newFoldReplacer(vietnameseFolds)

func newFoldReplacer(folds map[rune]string) *strings.Replacer {
	var pairs []string
	for base, variants := range folds {
		for _, v := range variants {
			pairs = append(pairs, string(v), string(base))
			if up := unicode.ToUpper(v); up != v {
				pairs = append(pairs, string(up), string(base))
			}
		}
	}
	return strings.NewReplacer(pairs...)
}

// Normalize folds Vietnamese (and any other Latin) diacritics away and
// lowercases, e.g. "Hàm số bậc Hai" -> "ham so bac hai". It is the comparison
// key used by topic search; it is never shown to users.
func Normalize(s string) string {
	s = vietnameseReplacer.Replace(strings.ToLower(s))
	s, _, _ = transform.String(stripAccents(), s)
	return strings.TrimSpace(strings.ToLower(s))
}

// NormalizeLowercaseASCII lowercases and strips accents through Unicode
// decomposition only (e.g. Élodie -> elodie). It leaves đ untouched.
func NormalizeLowercaseASCII(s string) string {
	result, _, _ := transform.String(stripAccents(), strings.ToLower(s))
	return result
}

// NormalizeLowercaseUTF8 lowercases but preserves accents.
func NormalizeLowercaseUTF8(s string) string {
	return strings.ToLower(s)
}

// NormalizeNone returns the term unchanged.
func NormalizeNone(s string) string {
	return s
}

// GetNormalizer returns the normalizer for the given mode.
// Default is vietnamese.
func GetNormalizer(mode string) Normalizer {
	switch mode {
	case "lowercase_ascii":
		return NormalizeLowercaseASCII
	case "lowercase_utf8":
		return NormalizeLowercaseUTF8
	case "none":
		return NormalizeNone
	default:
		return Normalize
	}
}
