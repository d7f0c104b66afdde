package engine

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator hands out name-based (SHA-1) UUIDs. Ids are a pure function of
// the seed and the call order, so a replayed run assigns the same ids.
type IDGenerator struct {
	namespace uuid.UUID
	n         uint64
}

func NewIDGenerator(seed int64) *IDGenerator {
	return &IDGenerator{
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte("marketsim/"+strconv.FormatInt(seed, 10))),
	}
}

// Next returns the next id for kind ("order", "trade").
func (g *IDGenerator) Next(kind string) string {
	g.n++
	return uuid.NewSHA1(g.namespace, []byte(kind+"/"+strconv.FormatUint(g.n, 10))).String()
}
