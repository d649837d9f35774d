package correlator

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// newRequestID returns a random v4 UUID, or a time+random composite when the
// system random source is unavailable.
func newRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackRequestID(time.Now())
	}
	return id.String()
}

func fallbackRequestID(now time.Time) string {
	return fmt.Sprintf("%s-%s", strconv.FormatInt(now.UnixNano(), 36), strconv.FormatUint(rand.Uint64(), 36))
}
