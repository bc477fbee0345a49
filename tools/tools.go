package tools

import (
	"crypto/sha512"
	"encoding/hex"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

const numbers = "0123456789"
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// shareAlphabet avoids characters that are easy to confuse when read aloud.
const shareAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

func RandomNumbers(length int) string {
	return mustGenerate(numbers, length)
}

func RandomString(length int) string {
	return mustGenerate(charset, length)
}

// ShareCode returns a short public code for a test.
func ShareCode() string {
	return mustGenerate(shareAlphabet, 10)
}

func mustGenerate(alphabet string, length int) string {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		// nanoid only fails when crypto/rand fails.
		panic(err)
	}
	return id
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func PasswordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
