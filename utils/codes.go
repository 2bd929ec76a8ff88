// utils/codes.go
package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// Unambiguous alphabet: no 0/O, 1/I
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomString returns n characters drawn from alphabet
func RandomString(n int, alphabet string) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String()
}

// GenerateGiftCardCode returns a code formatted XXXX-XXXX-XXXX
func GenerateGiftCardCode() string {
	return RandomString(4, codeAlphabet) + "-" + RandomString(4, codeAlphabet) + "-" + RandomString(4, codeAlphabet)
}

// NormalizeGiftCardCode uppercases and strips whitespace
func NormalizeGiftCardCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

func GeneratePIN() string {
	return RandomString(4, "0123456789")
}

// GenerateConfirmationCode returns an 8-character booking reference
func GenerateConfirmationCode() string {
	return RandomString(8, codeAlphabet)
}

func GenerateReferralCode() string {
	return "REF-" + RandomString(6, codeAlphabet)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "salon"
	}
	return slug
}
