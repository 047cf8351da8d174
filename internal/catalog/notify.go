package catalog

import "github.com/brandlover88/brandlover-backend/internal/i18n"

// tr/trf resolve a notice string in the session's language.
func tr(s *Session, key string) string {
	return i18n.T(s.Lang, key)
}

func trf(s *Session, key string, vars map[string]string) string {
	return i18n.TF(s.Lang, key, vars)
}
