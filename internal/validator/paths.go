package validator

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxTestingPathLen = 1024

// Object storage key for a test bundle. Keys are opaque to us but they end up in
// log lines, span attributes and (via their basename) on disk.
func ValidTestingPath(path string) bool {
	if path == "" || len(path) > maxTestingPathLen || !utf8.ValidString(path) {
		return false
	}
	if strings.HasSuffix(path, "/") {
		return false
	}

	return strings.IndexFunc(path, unicode.IsControl) == -1
}

// A single path element that stays inside the directory it is joined to
func ValidFilename(name string) bool {
	if !filepath.IsLocal(name) {
		return false
	}

	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

func validateTestingPath(fl validator.FieldLevel) bool {
	return ValidTestingPath(fl.Field().String())
}

func validateFilename(fl validator.FieldLevel) bool {
	return ValidFilename(fl.Field().String())
}
