package auth

import (
	"math/rand"
	"strings"
)

const tempPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateNumericCode returns a string of random decimal digits of the
// given length, used as a one-time login code.
func GenerateNumericCode(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// GenerateTempPassword returns a random alphanumeric string used as a
// one-time replacement password during an admin-forced reset.
func GenerateTempPassword(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(tempPasswordAlphabet[rand.Intn(len(tempPasswordAlphabet))])
	}
	return b.String()
}
