package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForSearchAliases(t *testing.T) {
	tokens := ForSearch("Рога и Копыта (РИК)", "")

	assert.Contains(t, tokens, "рога и копыта")
	assert.Contains(t, tokens, "roga i kopyta")
	assert.Contains(t, tokens, "рик")
	assert.Contains(t, tokens, "rik")
	assert.Len(t, tokens, 4)
}

func TestForSearchIsStable(t *testing.T) {
	first := ForSearch("Рога и Копыта (РИК)", "ОГРН: «Копыта»")
	second := ForSearch("Рога и Копыта (РИК)", "ОГРН: «Копыта»")
	require.Equal(t, first, second)
	assert.Equal(t, Tokens("Рога и Копыта (РИК)", ""), Tokens("Рога и Копыта (РИК)", ""))
}

func TestForSearchDetailsAlias(t *testing.T) {
	tokens := ForSearch("Фонд", "Номер в перечне: 3 | ОГРН: «Светлый Путь»")
	assert.Contains(t, tokens, "фонд")
	assert.Contains(t, tokens, "светлый путь")
	assert.Contains(t, tokens, "svetlyj put'")
}

func TestForSearchDropsEmptyVariants(t *testing.T) {
	assert.Empty(t, ForSearch("", ""))
	assert.Equal(t, []string{"abc", "абц"}, ForSearch(`"abc" ()`, ""))
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Ёлка,  «Зелёная» ; ", "елка зеленая"},
		{"ОБЩЕСТВО\n*С* ОГРАНИЧЕННОЙ", "общество с ограниченной"},
		{"(РИК)", "рик"},
		{" ,;* ", ""},
		// decomposed ё (е + U+0308)
		{"Ёж", "еж"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), tt.in)
	}
}

func TestQueryWords(t *testing.T) {
	assert.Equal(t, []string{"рога", "копыта"}, QueryWords(" Рога,  КОПЫТА "))
	assert.Nil(t, QueryWords(`"«»,;*`))
	assert.Nil(t, QueryWords("   "))
}

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "schuka i ezh", Transliterate("щука и еж"))
	assert.Equal(t, "tsentr chaj", Transliterate("центр чай"))
	assert.Equal(t, "юла щука", Transliterate("jula schuka"))
	assert.Equal(t, "123", Transliterate("123"))
}
