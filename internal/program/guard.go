package program

import (
	"github.com/lugondev/flashswap/internal/errors"
)

// CheckExpiration rejects offers whose expiration lies before now.
// An expiration equal to now is still valid.
func CheckExpiration(expiration, now int64) error {
	if expiration < now {
		return errors.ErrExpired.Withf("expired at %d, now %d", expiration, now)
	}
	return nil
}
