package mock

import (
	tmtypes "github.com/tendermint/tendermint/types"

	mempl "github.com/Tanuj-solulab/learning-service-real-estate/mempool"
)

// Mempool is an empty implementation of a Mempool, useful for testing.
type Mempool struct{}

var _ mempl.Mempool = Mempool{}

func (Mempool) Lock()     {}
func (Mempool) Unlock()   {}
func (Mempool) Size() int { return 0 }
func (Mempool) CheckTx(_ tmtypes.Tx, _ mempl.TxInfo) error {
	return nil
}
func (Mempool) ReapMaxTxs(_ int) tmtypes.Txs { return tmtypes.Txs{} }
func (Mempool) Update(
	_ int64,
	_ tmtypes.Txs,
) error {
	return nil
}
func (Mempool) Flush()          {}
func (Mempool) TxsBytes() int64 { return 0 }
