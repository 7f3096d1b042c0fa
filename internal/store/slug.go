package store

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug reduces a region name to a lowercase ASCII path component, e.g.
// "Downtown LA" -> "downtown-la" and "Zürich Altstadt" -> "zurich-altstadt".
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// CheckRegionName rejects names that cannot be used as a file name prefix.
func CheckRegionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return eris.New("store: region name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return eris.Errorf("store: region name %q contains a path separator", name)
	}
	if Slug(name) == "" {
		return eris.Errorf("store: region name %q has no letters or digits", name)
	}
	return nil
}
