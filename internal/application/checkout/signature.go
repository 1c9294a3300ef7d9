package checkout

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeName collapses whitespace, composes Unicode and folds case so
// that "  ALI   valiyev" equals "Ali Valiyev"
func normalizeName(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	return cases.Fold().String(s)
}

// signatureMatches compares a typed signature with the registered name
func signatureMatches(signature, fullName string) bool {
	return normalizeName(signature) == normalizeName(fullName)
}
