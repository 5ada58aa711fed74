package bookings

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const refCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingRef produces a human-readable reference like
// BUS-20260831-7KQ2M9. Ambiguous characters (0/O, 1/I) are excluded.
// Uniqueness is enforced by the database index; a collision surfaces as an
// insert error and the caller retries.
func GenerateBookingRef() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(refCharset))))
		if err != nil {
			// crypto/rand failing means the process is in bad shape;
			// fall back to a time-derived index rather than panic.
			suffix[i] = refCharset[time.Now().UnixNano()%int64(len(refCharset))]
			continue
		}
		suffix[i] = refCharset[n.Int64()]
	}
	return fmt.Sprintf("BUS-%s-%s", time.Now().UTC().Format("20060102"), string(suffix))
}
