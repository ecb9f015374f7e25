package utils

import (
	"crypto/rand"
	"math/big"
)

// inviteCharset drops characters that are easy to misread when shared by hand.
const inviteCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomFrom(alphabet string, n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return ""
		}
		b[i] = alphabet[num.Int64()]
	}
	return string(b)
}

// GenerateInviteCode returns an upper-case group invite code of length n.
func GenerateInviteCode(n int) string {
	return randomFrom(inviteCharset, n)
}
