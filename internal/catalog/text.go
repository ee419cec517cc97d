package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters NFD does not decompose
var foldReplacer = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
)

// Fold strips diacritics from s
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		return s
	}
	return folded
}

// Slug lowercases s, folds diacritics and collapses everything that is not
// a letter or digit into single hyphens.
func Slug(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(Fold(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Handle derives the product handle from its title, falling back to the
// record id when the title has no usable characters.
func Handle(title, id string) string {
	if h := Slug(title); h != "" {
		return h
	}
	if id = strings.TrimSpace(id); id != "" {
		return "product-" + Slug(id)
	}
	return "product"
}

// TitleCase renders an attribute name for display: "shoe_size" -> "Shoe Size".
// Every run of letters starts a word, so "3d_print" becomes "3D Print".
func TitleCase(name string) string {
	title := cases.Title(language.English)
	s := strings.ReplaceAll(name, "_", " ")

	var b strings.Builder
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(title.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(title.String(s[start:]))
	}
	return b.String()
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// OptionName is the display name of a variant attribute
func OptionName(attr string) string {
	if strings.EqualFold(attr, "sizes") {
		return "Size"
	}
	return Capitalize(attr)
}

// Tags renders the tag field for a taxonomy string in the chosen mode
func Tags(raw string, singleTag bool) string {
	if singleTag {
		return SingleTag(raw)
	}
	return ExtractTags(raw)
}
