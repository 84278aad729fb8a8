// Package user holds the account model the verification flow operates on.
// Accounts are provisioned by an upstream registration system; this service
// only reads them and flips their verified state.
package user

import (
	"time"

	id "verifid/pkg/domain"
)

// User is an account subject to identity verification.
type User struct {
	ID               id.UserID
	Email            string
	Name             string
	Verified         bool
	VerificationDate *time.Time
	CreatedAt        time.Time
}

// MarkVerified flips the account to verified at the given instant.
func (u *User) MarkVerified(at time.Time) {
	u.Verified = true
	u.VerificationDate = &at
}
