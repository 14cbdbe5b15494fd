package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted one-way hash from plaintext. The salt is
// random per call, so two hashes of the same password differ.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored hash. The
// comparison inside bcrypt does not short-circuit on the first differing
// byte. A malformed stored hash reports false rather than failing.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
