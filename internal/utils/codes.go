package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateConfirmationCode produces a human-readable booking code,
// e.g. FL20260042. Uniqueness is enforced by the database; collisions
// on the 4-digit suffix surface as a retryable insert error.
func GenerateConfirmationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// rand.Reader failing means the OS entropy source is broken;
		// fall back to the clock rather than crash a booking.
		return fmt.Sprintf("FL%d%04d", time.Now().Year(), time.Now().UnixNano()%10000)
	}
	return fmt.Sprintf("FL%d%04d", time.Now().Year(), n.Int64())
}
