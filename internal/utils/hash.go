package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes an account password for storage on the user
// row.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

// CheckPassword reports whether the plaintext matches the stored bcrypt
// hash.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
