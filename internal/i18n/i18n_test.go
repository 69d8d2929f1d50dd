package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	i := GetInstance()

	assert.Equal(t, "File not found", i.Translate("record_not_found", LangEnUS))
	assert.Equal(t, "文件未找到", i.Translate("record_not_found", LangZhCN))
	assert.Equal(t, "File not found", i.Translate("record_not_found", "fr-FR"), "不支持的语言回退到默认语言")
	assert.Equal(t, "no_such_key", i.Translate("no_such_key", LangEnUS))
}

func TestTranslatorsHoldEveryMessage(t *testing.T) {
	i := GetInstance()

	for lang, messages := range translations {
		trans, ok := i.translators[lang]
		require.True(t, ok, lang)
		for key, want := range messages {
			got, err := trans.T(key)
			require.NoError(t, err, "%s (%s)", key, lang)
			assert.Equal(t, want, got)
		}
	}
}

func TestPlural(t *testing.T) {
	i := GetInstance()

	tests := []struct {
		lang string
		n    int
		want string
	}{
		{LangEnUS, 0, "(0 files)"},
		{LangEnUS, 1, "(1 file)"},
		{LangEnUS, 2, "(2 files)"},
		{LangZhCN, 1, "（1 个文件）"},
		{"fr-FR", 3, "(3 files)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, i.Plural("file_count", tt.lang, tt.n), "%s %d", tt.lang, tt.n)
	}
	assert.Equal(t, "no_such_key", i.Plural("no_such_key", LangEnUS, 2))
}

func TestFromAcceptLanguage(t *testing.T) {
	i := GetInstance()

	assert.Equal(t, LangZhCN, i.FromAcceptLanguage("zh-CN,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, LangEnUS, i.FromAcceptLanguage("en;q=0.8"))
	assert.Equal(t, i.GetDefaultLanguage(), i.FromAcceptLanguage("de-DE"))
}
