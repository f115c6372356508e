// Package password wraps bcrypt hashing. The produced hashes carry the
// "$2a$<cost>$" prefix the user aggregate's format check recognizes, which
// keeps plaintext passwords out of the event journal by construction.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost is a reasonable work factor for interactive logins.
const DefaultCost = bcrypt.DefaultCost

// Hash hashes the plain text password using bcrypt with the given cost.
func Hash(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares a bcrypt hash with a plain password.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
