package rpc

import (
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"

	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
)

var (
	ErrNoStore = errors.New("no document store")
)

type ResultDocument struct {
	// 0 for the document of the active round
	Height   int64           `json:"height"`
	Version  int64           `json:"version"`
	Hash     bytes.HexBytes  `json:"hash"`
	Document *state.Document `json:"document"`
}

type ResultRound struct {
	Round       cstypes.RoundState `json:"round"`
	PeriodCount int64              `json:"period_count"`
	Keys        []string           `json:"keys"`
}

// Document returns the document committed at height, or the one the active
// round works on when height is missing or 0.
func Document(ctx *rpctypes.Context, heightPtr *int64) (*ResultDocument, error) {
	if heightPtr == nil || *heightPtr == 0 {
		doc := env.App.SynchronizedData().Document()
		return &ResultDocument{Version: doc.Version(), Hash: doc.Hash(), Document: doc}, nil
	}
	if *heightPtr < 0 {
		return nil, errors.Errorf("height must be positive, got %d", *heightPtr)
	}
	if env.Store == nil {
		return nil, ErrNoStore
	}
	doc, err := env.Store.LoadDocument(*heightPtr)
	if err != nil {
		return nil, err
	}
	return &ResultDocument{Height: *heightPtr, Version: doc.Version(), Hash: doc.Hash(), Document: doc}, nil
}

// Round returns the active round.
func Round(ctx *rpctypes.Context) (*ResultRound, error) {
	data := env.App.SynchronizedData()
	return &ResultRound{
		Round:       env.App.RoundState(),
		PeriodCount: data.PeriodCount(),
		Keys:        data.Document().Keys(),
	}, nil
}
