package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash of an account password at the
// given cost. Batch access passwords are not hashed with this; admins
// need to read those back, so they are stored as entered.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash against a plain password in
// constant time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
