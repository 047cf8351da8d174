// Package i18n serves the shop's localized strings. Each language is a flat
// key/value JSON document; a missing document or key falls back to English and
// then to a hardcoded default, so a notice is never empty.
package i18n

import (
	"embed"
	"encoding/json"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

var Languages = []string{"en", "kh", "zh"}

var docs map[string]map[string]string

// Defaults used when a key is missing from every document. Kept in sync with
// the keys in locales/en.json.
var fallback = map[string]string{
	"fillRequired":      "Please fill in all required fields including at least one image",
	"addSuccess":        "Product added successfully",
	"addFail":           "Failed to add product:",
	"updateSuccess":     "Product updated successfully",
	"updateFail":        "Failed to update product:",
	"originalNotFound":  "Original product not found",
	"deleteSuccess":     "Product deleted successfully",
	"deleteFail":        "Failed to delete product:",
	"imageTooLarge":     "Image {name} is too large (max {max}MB)",
	"imageCompressFail": "Image compression failed for {name}",
	"uploadFail":        "Failed to upload image:",
	"sessionBusy":       "Another operation is still running, please wait",
	"logout":            "Logout failed:",
}

func init() {
	docs = make(map[string]map[string]string, len(Languages))
	for _, lang := range Languages {
		raw, err := localeFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			continue
		}
		var doc map[string]string
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs[lang] = doc
	}
}

// Doc returns the full document for a language, falling back to English.
func Doc(lang string) map[string]string {
	if d, ok := docs[lang]; ok {
		return d
	}
	return docs["en"]
}

// T resolves key for lang: document -> English document -> hardcoded default.
func T(lang, key string) string {
	if d, ok := docs[lang]; ok {
		if v, ok := d[key]; ok {
			return v
		}
	}
	if v, ok := docs["en"][key]; ok {
		return v
	}
	return fallback[key]
}

// TF resolves key and substitutes {placeholder} values.
func TF(lang, key string, vars map[string]string) string {
	s := T(lang, key)
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
