package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/gofrs/uuid"
)

// passwordSalt is shared by all users for compatibility with the
// existing user files. A per-user random salt would be the correct
// scheme; changing it invalidates every stored hash, so it needs a
// migration first.
const passwordSalt = "detection_lab_salt"

// HashPassword returns the hex SHA-256 digest of password+salt. Same
// input always yields the same hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password + passwordSalt))
	return hex.EncodeToString(sum[:])
}

func CheckPassword(password, hash string) bool {
	candidate := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// NewUserID generates a stable external user id of the form
// user_1a2b3c4d. Ids are never reused.
func NewUserID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return "user_" + hex.EncodeToString(id.Bytes())[:8], nil
}
