package primitives

// ChainName identifies the chain a judgement request targets.
type ChainName string

const (
	Polkadot ChainName = "polkadot"
	Kusama   ChainName = "kusama"
)

// ChainAddress is an opaque, chain-scoped account identifier.
type ChainAddress string

// IdentityContext is the primary key for all identity-scoped state: a
// (address, chain) pair.
type IdentityContext struct {
	Address ChainAddress `json:"address"`
	Chain   ChainName    `json:"chain"`
}

func NewIdentityContext(address string, chain ChainName) IdentityContext {
	return IdentityContext{Address: ChainAddress(address), Chain: chain}
}
