package api

import (
	"github.com/slushie/slushie-node/types"
)

// DepositRequest is the body of POST /deposits. Amount is the value the
// depositor attaches to the call; it must equal the pool's deposit size.
type DepositRequest struct {
	Commitment types.HexBytes `json:"commitment"`
	Amount     *types.BigInt  `json:"amount"`
}

// DepositResponse carries the accumulator root produced by the deposit and
// the leaf index the commitment occupies.
type DepositResponse struct {
	Root  types.HexBytes `json:"root"`
	Index uint64         `json:"index"`
}

// WithdrawRequest is the body of POST /withdrawals.
type WithdrawRequest struct {
	Nullifier types.HexBytes `json:"nullifier"`
	Root      types.HexBytes `json:"root"`
	Recipient string         `json:"recipient"`
}

// RootResponse is the body of GET /root.
type RootResponse struct {
	Root      types.HexBytes `json:"root"`
	LeafCount uint64         `json:"leafCount"`
}

// RootStatusResponse is the body of GET /roots/{root}.
type RootStatusResponse struct {
	Known bool `json:"known"`
}

// FactsResponse is the body of GET /facts.
type FactsResponse struct {
	Facts []*types.Fact `json:"facts"`
}
