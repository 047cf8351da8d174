package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTResolvesPerLanguage(t *testing.T) {
	require.Equal(t, "Product added successfully", T("en", "addSuccess"))
	require.Equal(t, "បានបន្ថែមផលិតផលដោយជោគជ័យ", T("kh", "addSuccess"))
	require.NotEqual(t, T("en", "addSuccess"), T("zh", "addSuccess"))
}

func TestTFallsBackToEnglishForUnknownLanguage(t *testing.T) {
	require.Equal(t, T("en", "deleteSuccess"), T("fr", "deleteSuccess"))
	require.Equal(t, T("en", "deleteSuccess"), T("", "deleteSuccess"))
}

func TestTUnknownKeyFallsBackToDefault(t *testing.T) {
	// not in any document, not in the defaults either: empty, never a panic
	require.Empty(t, T("en", "noSuchKey"))
	require.Empty(t, T("kh", "noSuchKey"))
}

func TestTFSubstitutesPlaceholders(t *testing.T) {
	got := TF("en", "imageTooLarge", map[string]string{"name": "cat.jpg", "max": "50"})
	require.Equal(t, "Image cat.jpg is too large (max 50MB)", got)

	// placeholders survive in every translation
	kh := TF("kh", "imageTooLarge", map[string]string{"name": "cat.jpg", "max": "50"})
	require.Contains(t, kh, "cat.jpg")
	require.Contains(t, kh, "50")
	require.NotContains(t, kh, "{name}")
	require.NotContains(t, kh, "{max}")
}

func TestDocFallsBackToEnglish(t *testing.T) {
	require.Equal(t, Doc("en"), Doc("de"))
	require.NotEmpty(t, Doc("kh")["fillRequired"])

	// every language carries the full key set
	for _, lang := range Languages {
		d := Doc(lang)
		for key := range Doc("en") {
			require.Contains(t, d, key, "lang %s", lang)
		}
	}
}
