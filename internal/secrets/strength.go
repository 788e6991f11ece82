package secrets

import (
	"fmt"
	"strings"
	"unicode"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// MinPassphraseLength is the shortest passphrase accepted as a master key.
const MinPassphraseLength = 8

// CheckPassphraseStrength enforces the master-key policy: at least
// MinPassphraseLength characters with an upper-case letter, a lower-case letter,
// a digit and a symbol.
//
// Returns ErrWeakPassphrase naming every requirement that is not met.
func CheckPassphraseStrength(passphrase []byte) error {
	var upper, lower, digit, symbol bool
	runes := []rune(string(passphrase))
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			symbol = true
		}
	}

	var missing []string
	if len(runes) < MinPassphraseLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", MinPassphraseLength))
	}
	if !upper {
		missing = append(missing, "an upper-case letter")
	}
	if !lower {
		missing = append(missing, "a lower-case letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a symbol")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", kerrors.ErrWeakPassphrase, strings.Join(missing, ", "))
	}
	return nil
}

var craftSubstitutions = map[rune]string{
	'a': "4",
	'e': "3",
	'i': "1",
	'o': "0",
	'u': "()",
	's': "$",
}

// DefaultCraftSeparator splits a phrase into words for CraftPassword.
const DefaultCraftSeparator = " "

// CraftPassword turns a memorable phrase into a harder password. The phrase is
// split on sep and the words are joined back together. Within each word some
// lower-case vowels and 's' are swapped for look-alike digits or symbols, and
// the first character that was not swapped is upper-cased.
func CraftPassword(phrase, sep string) string {
	if sep == "" {
		sep = DefaultCraftSeparator
	}

	var b strings.Builder
	for _, word := range strings.Split(phrase, sep) {
		capitalised := false
		for _, r := range word {
			if sub, ok := craftSubstitutions[r]; ok {
				b.WriteString(sub)
				continue
			}
			if !capitalised {
				capitalised = true
				b.WriteRune(unicode.ToUpper(r))
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
