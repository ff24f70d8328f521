package payment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const referencePrefix = "WN"

var (
	refMu     sync.Mutex
	refBucket int64
	refIssued map[int64]struct{}
)

// GenerateReference returns a unique payment reference of the form
// WN-<millisecond-timestamp>-<6-digit-random>. A per-millisecond ledger of
// issued randoms rules out in-process birthday collisions when many
// references are drawn inside one bucket; collisions across processes are
// caught by the unique index on orders.payment_reference.
func GenerateReference() string {
	timestamp := time.Now().UnixMilli()

	refMu.Lock()
	if timestamp != refBucket {
		refBucket = timestamp
		refIssued = make(map[int64]struct{})
	}

	random := randomInt(1000000)
	for {
		if _, dup := refIssued[random]; !dup {
			break
		}
		random = randomInt(1000000)
	}
	refIssued[random] = struct{}{}
	refMu.Unlock()

	return fmt.Sprintf("%s-%d-%06d", referencePrefix, timestamp, random)
}

func randomInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		// crypto/rand only fails if the platform entropy source is broken;
		// fall back to the nanosecond clock rather than failing a checkout.
		return time.Now().UnixNano() % max
	}
	return n.Int64()
}
