package normalize

import (
	"strings"
	"unicode"
)

// Russian table of the "transliterate" ru pack, which built the indexes this
// module still has to match against.
var cyrToLat = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "'", 'ы': "y", 'ь': "'", 'э': "e", 'ю': "ju", 'я': "ja",
}

// Longest sequences first.
var latDigraphs = []struct{ lat, cyr string }{
	{"sch", "щ"},
	{"zh", "ж"}, {"ts", "ц"}, {"ch", "ч"}, {"sh", "ш"}, {"ju", "ю"}, {"ja", "я"},
}

var latToCyr = map[rune]string{
	'a': "а", 'b': "б", 'v': "в", 'g': "г", 'd': "д", 'e': "е", 'z': "з",
	'i': "и", 'j': "й", 'k': "к", 'l': "л", 'm': "м", 'n': "н", 'o': "о",
	'p': "п", 'r': "р", 's': "с", 't': "т", 'u': "у", 'f': "ф", 'h': "х",
	'c': "ц", 'y': "ы", '\'': "ь",
}

// Transliterate maps Cyrillic text to Latin. Text without any Cyrillic
// letters is mapped the other way. Input is expected to be Clean'ed.
func Transliterate(s string) string {
	if hasCyrillic(s) {
		return toLatin(s)
	}
	return toCyrillic(s)
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func toLatin(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if lat, ok := cyrToLat[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toCyrillic(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); {
		matched := false
		for _, d := range latDigraphs {
			if strings.HasPrefix(s[i:], d.lat) {
				b.WriteString(d.cyr)
				i += len(d.lat)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		r := rune(s[i])
		if r >= 0x80 {
			// non-ASCII runes are copied through untouched
			j := i + 1
			for j < len(s) && s[j]&0xC0 == 0x80 {
				j++
			}
			b.WriteString(s[i:j])
			i = j
			continue
		}
		if cyr, ok := latToCyr[r]; ok {
			b.WriteString(cyr)
		} else {
			b.WriteByte(s[i])
		}
		i++
	}
	return b.String()
}
