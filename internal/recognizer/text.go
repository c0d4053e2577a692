package recognizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls post-processing of raw Tesseract output.
type CleanOptions struct {
	NormalizeForm      string            // "NFC" (default), "NFKC", "NFD", "NFKD", "none"
	CollapseWhitespace bool              // collapse runs of whitespace to a single space
	NormalizeNewlines  bool              // CRLF/CR/form feed to LF, squeeze blank lines
	RemoveControlChars bool              // drop control characters other than \n and \t
	RemoveZeroWidth    bool              // drop zero-width spaces and joiners
	ReplaceMap         map[string]string // applied after normalization
	Language           string            // Tesseract language code; selects a default ReplaceMap
}

// DefaultCleanOptions keeps line structure intact so space statistics stay
// comparable between rotations.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFC",
		NormalizeNewlines:  true,
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
	}
}

// PostProcessText normalizes and trims recognized text.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}

	s = normalizeForm(s, opts.NormalizeForm)
	if opts.NormalizeNewlines {
		s = normalizeNewlines(s)
	}
	if opts.RemoveZeroWidth {
		s = removeZeroWidth(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if m := replaceMapFor(opts); len(m) > 0 {
		s = applyReplaceMap(s, m)
	}
	if opts.CollapseWhitespace {
		s = wsRe.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(s)
}

func normalizeForm(s, form string) string {
	switch strings.ToUpper(form) {
	case "NFC", "":
		return norm.NFC.String(s)
	case "NFKC":
		return norm.NFKC.String(s)
	case "NFD":
		return norm.NFD.String(s)
	case "NFKD":
		return norm.NFKD.String(s)
	}
	return s
}

var (
	wsRe         = regexp.MustCompile(`\s+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	return blankLinesRe.ReplaceAllString(s, "\n\n")
}

func replaceMapFor(opts CleanOptions) map[string]string {
	if len(opts.ReplaceMap) > 0 {
		return opts.ReplaceMap
	}
	if opts.Language != "" {
		return DefaultReplaceMapForLanguage(opts.Language)
	}
	return nil
}

func applyReplaceMap(s string, replaceMap map[string]string) string {
	keys := make([]string, 0, len(replaceMap))
	for k := range replaceMap {
		keys = append(keys, k)
	}
	// longer keys first so overlapping entries do not clobber each other
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, replaceMap[k])
	}
	return s
}

// DefaultReplaceMapForLanguage returns typographic replacements for a
// Tesseract language code such as "eng", "deu", "fra" or "por". Multi-language
// specs ("eng+deu") merge their maps.
func DefaultReplaceMapForLanguage(lang string) map[string]string {
	m := map[string]string{
		"‘": "'",
		"’": "'",
		"“": "\"",
		"”": "\"",
		"–": "-",
		"—": "-",
		"\u00A0": " ",
		"\u2009": " ",
	}
	for _, l := range strings.Split(strings.ToLower(lang), "+") {
		switch strings.TrimSpace(l) {
		case "deu", "de":
			m["„"] = "\""
		case "fra", "fr", "por", "pt":
			m["«"] = "\""
			m["»"] = "\""
		}
	}
	return m
}

func removeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func removeZeroWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
