package contracts

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

// Performative is the kind of a contract request or response.
type Performative string

const (
	GetState          = Performative("get_state")
	GetRawTransaction = Performative("get_raw_transaction")

	State          = Performative("state")
	RawTransaction = Performative("raw_transaction")
	Error          = Performative("error")
)

// contract ids
const (
	RealEstateSolution = "real_estate_solution"
	ERC20              = "erc20"
	MultiSend          = "multisend"
	GnosisSafe         = "gnosis_safe"
)

// callables
const (
	GetPropertiesForSale      = "get_properties_for_sale"
	GetBuyPropertyTx          = "get_buy_property_tx"
	BuildApprovalTx           = "build_approval_tx"
	GetTxData                 = "get_tx_data"
	GetRawSafeTransactionHash = "get_raw_safe_transaction_hash"
)

// response body keys
const (
	BodyData   = "data"
	BodyTxHash = "tx_hash"
	BodyError  = "error"
)

const GnosisChainID = "gnosis"

var (
	ErrUnknownCallable = errors.New("unknown contract callable")
	ErrBadKwarg        = errors.New("bad contract call argument")
)

// Request is a contract read or calldata build.
type Request struct {
	Performative    Performative
	ContractID      string
	ContractAddress string
	Callable        string
	ChainID         string
	Kwargs          Kwargs
}

// Response carries the result of a Request. Failed calls come back with the
// Error performative and the reason under BodyError.
type Response struct {
	Performative Performative
	Body         map[string]interface{}
}

// API answers contract requests. Implementations never return a nil
// response without an error.
type API interface {
	GetResponse(ctx context.Context, req Request) (*Response, error)
}

func ErrorResponse(err error) *Response {
	return &Response{Performative: Error, Body: map[string]interface{}{BodyError: err.Error()}}
}

// Kwargs are the named arguments of a callable.
type Kwargs map[string]interface{}

func (kw Kwargs) BigInt(key string) (*big.Int, error) {
	switch v := kw[key].(type) {
	case *big.Int:
		if v == nil {
			break
		}
		return v, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint8:
		return big.NewInt(int64(v)), nil
	}
	return nil, errors.Wrapf(ErrBadKwarg, "%s: want integer, got %T", key, kw[key])
}

func (kw Kwargs) String(key string) (string, error) {
	v, ok := kw[key].(string)
	if !ok {
		return "", errors.Wrapf(ErrBadKwarg, "%s: want string, got %T", key, kw[key])
	}
	return v, nil
}

func (kw Kwargs) Bytes(key string) ([]byte, error) {
	v, ok := kw[key].([]byte)
	if !ok {
		return nil, errors.Wrapf(ErrBadKwarg, "%s: want bytes, got %T", key, kw[key])
	}
	return v, nil
}

func (kw Kwargs) MultiSendTxs(key string) ([]MultiSendTx, error) {
	v, ok := kw[key].([]MultiSendTx)
	if !ok {
		return nil, errors.Wrapf(ErrBadKwarg, "%s: want multisend txs, got %T", key, kw[key])
	}
	return v, nil
}
