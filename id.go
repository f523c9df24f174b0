package beanledger

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// MetaID is the metadata key carrying a directive's stable identifier.
// The id is persisted in the file itself so it survives re-serialization
// and external editors that keep metadata intact.
const MetaID = "id"

// NewID returns a fresh directive identifier. ULIDs are sortable by creation
// time and collision-free across goroutines.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
