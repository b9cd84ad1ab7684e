//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
