// Package params holds the chain-wide configuration consulted by the
// consensus engine and the executor. It deliberately carries no
// execution-engine-specific fork schedule: per spec §1 the transaction
// execution engine is an external collaborator, so any fork/gas-schedule
// parameters belong to it, not to the import core.
package params

import (
	"fmt"
	"math/big"
)

// ChainConfig is the chain-wide configuration shared by every component of
// the import core.
type ChainConfig struct {
	ChainID *big.Int `json:"chainId"`

	// GenesisNumber is the block number of the chain's genesis header.
	// Almost always zero; kept general for chains that bootstrap from a
	// non-zero checkpoint.
	GenesisNumber uint64 `json:"genesisNumber"`
}

// Description returns a human-readable one-line description of the
// configuration.
func (c *ChainConfig) Description() string {
	return fmt.Sprintf("Chain ID: %v, genesis number: %d", c.ChainID, c.GenesisNumber)
}

// CommonParams are the engine-specific parameters retrieved for a given
// parent header during family verification (spec §4.7: "Retrieve
// common_params(parent) from the engine-parameter registry"). Their
// concrete shape is owned by the consensus engine; the import core only
// threads the value through.
type CommonParams interface{}
