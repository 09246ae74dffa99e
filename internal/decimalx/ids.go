package decimalx

import "github.com/google/uuid"

// MarketId, AccountId and OrderId are opaque caller-supplied identifiers.
// They are distinct string-based types so a MarketId can never be passed
// where an AccountId is expected, even though both are ultimately strings.
type (
	MarketId  string
	AccountId string
	OrderId   string
)

func (m MarketId) String() string  { return string(m) }
func (a AccountId) String() string { return string(a) }
func (o OrderId) String() string   { return string(o) }

// NewOrderId mints a fresh, collision-resistant OrderId for orders the
// engine itself originates rather than a caller — e.g. the market order a
// triggered conditional order converts into (internal/engine's
// evaluateConditionals). Grounded on the teacher's NewOrderMessage.Order,
// which stamps every inbound order with uuid.New().String() rather than
// trust a client-supplied identifier.
func NewOrderId() OrderId {
	return OrderId(uuid.New().String())
}
