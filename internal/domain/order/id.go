package order

import (
	"strings"

	"github.com/rs/xid"
)

// DefaultIDPrefix starts every order id unless configured otherwise.
const DefaultIDPrefix = "VF"

// IDGenerator produces order identifiers.
type IDGenerator interface {
	NewID() string
}

// XIDGenerator builds ids from a prefix and an xid token. Tokens combine a
// timestamp, machine id, process id and an atomic counter, so ids are unique
// across goroutines and processes and sort by creation time.
type XIDGenerator struct {
	Prefix string
}

func (g XIDGenerator) NewID() string {
	return g.Prefix + strings.ToUpper(xid.New().String())
}
