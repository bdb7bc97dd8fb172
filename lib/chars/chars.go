package chars

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/mazen160/go-random"
)

type Mode int

const (
	// lowercase letters and digits
	Lower Mode = iota
	// all letters and digits
	Upper
	// all letters, digits and `@#$%`
	Strong
	// every printable ascii character except whitespace
	Ultra
)

const DefaultLength = 12

const symbols = "@#$%"

func Charset(mode Mode) string {
	switch mode {
	case Upper:
		return random.ASCIICharacters
	case Strong:
		return random.ASCIICharacters + symbols
	case Ultra:
		return random.Printables
	}
	return random.ASCIILettersLowercase + random.Digits
}

// RandomString generates a random string of length n using the charset of
// the given mode, n <= 0 means DefaultLength.
func RandomString(n int, mode Mode) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	return random.Random(n, Charset(mode), true)
}

// MustRandomString is RandomString for callers that cannot recover from a
// broken source of randomness.
func MustRandomString(n int, mode Mode) string {
	s, err := RandomString(n, mode)
	if err != nil {
		panic(err)
	}
	return s
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
var multiSpace = regexp.MustCompile(`\s{2,}`)

// Clean replaces every non alphanumeric character with a space and
// collapses runs of whitespace.
func Clean(text string) string {
	text = nonAlnum.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Hash2S returns the md5 hex digest of text.
func Hash2S(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Hash2B returns the raw md5 digest of text.
func Hash2B(text string) []byte {
	sum := md5.Sum([]byte(text))
	return sum[:]
}
