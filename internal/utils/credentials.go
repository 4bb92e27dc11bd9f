package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+"

// GenerateCredentials produces the one-time credential pair handed to a
// doctor when an admin approves the account.
func GenerateCredentials() (username string, password string, err error) {
	buf := make([]byte, 4)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	username = "user_" + hex.EncodeToString(buf)

	password, err = generatePassword(12)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func generatePassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}
