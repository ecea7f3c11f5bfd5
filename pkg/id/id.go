package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes used for the records the simulator hands out.
const (
	PositionPrefix    = "pos_"
	TransactionPrefix = "tx_"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns prefix followed by a ULID. ULIDs generated within the same
// millisecond stay lexicographically increasing, so two positions opened
// in one tick never collide.
func New(prefix string) string {
	return prefix + newAt(time.Now().UTC())
}

// newAt returns a bare ULID stamped with t.
func newAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), mono)
	if err != nil {
		// Only possible if the clock runs backwards past the monotonic
		// window or entropy is exhausted.
		panic(err)
	}
	return id.String()
}
