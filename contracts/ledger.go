package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger answers contract requests against an EVM chain. Reads go through
// the caller; calldata is built locally.
type Ledger struct {
	caller bind.ContractCaller
	logger log.Logger
}

var _ API = (*Ledger)(nil)

func NewLedger(caller bind.ContractCaller, logger log.Logger) *Ledger {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Ledger{caller: caller, logger: logger}
}

// DialLedger connects to a JSON-RPC endpoint.
func DialLedger(ctx context.Context, rawurl string, logger log.Logger) (*Ledger, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial ledger %s", rawurl)
	}
	return NewLedger(client, logger), client, nil
}

func (l *Ledger) SetLogger(logger log.Logger) {
	l.logger = logger
}

// GetResponse dispatches req on its callable. Call failures are answered
// with an Error response; only malformed requests return an error.
func (l *Ledger) GetResponse(ctx context.Context, req Request) (*Response, error) {
	var (
		body map[string]interface{}
		err  error
	)
	performative := State
	switch req.Callable {
	case GetPropertiesForSale:
		body, err = l.getPropertiesForSale(ctx, req)
	case GetBuyPropertyTx:
		body, err = l.getBuyPropertyTx(req)
	case BuildApprovalTx:
		body, err = l.buildApprovalTx(req)
	case GetTxData:
		performative = RawTransaction
		body, err = l.getMultiSendTxData(req)
	case GetRawSafeTransactionHash:
		body, err = l.getRawSafeTransactionHash(ctx, req)
	default:
		return nil, errors.Wrapf(ErrUnknownCallable, "%s.%s", req.ContractID, req.Callable)
	}
	if errors.Is(err, ErrBadKwarg) {
		return nil, err
	}
	if err != nil {
		l.logger.Error("contract call failed", "contract", req.ContractID, "callable", req.Callable, "err", err)
		return ErrorResponse(err), nil
	}
	return &Response{Performative: performative, Body: body}, nil
}

func contractAddress(req Request) (common.Address, error) {
	if !common.IsHexAddress(req.ContractAddress) {
		return common.Address{}, errors.Wrapf(ErrBadKwarg, "contract address %q", req.ContractAddress)
	}
	return common.HexToAddress(req.ContractAddress), nil
}

func (l *Ledger) call(ctx context.Context, parsed abi.ABI, address common.Address, method string, args ...interface{}) ([]interface{}, error) {
	contract := bind.NewBoundContract(address, parsed, l.caller, nil, nil)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	return out, nil
}

func (l *Ledger) getPropertiesForSale(ctx context.Context, req Request) (map[string]interface{}, error) {
	address, err := contractAddress(req)
	if err != nil {
		return nil, err
	}
	out, err := l.call(ctx, realEstateABI, address, "getPropertiesForSale")
	if err != nil {
		return nil, err
	}
	properties := *abi.ConvertType(out[0], new([]OnChainProperty)).(*[]OnChainProperty)
	rows := make([][]interface{}, len(properties))
	for i, p := range properties {
		rows[i] = p.Row()
	}
	return map[string]interface{}{BodyData: rows}, nil
}

func (l *Ledger) getBuyPropertyTx(req Request) (map[string]interface{}, error) {
	id, err := req.Kwargs.BigInt("id")
	if err != nil {
		return nil, err
	}
	data, err := realEstateABI.Pack("buyProperty", id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{BodyData: hexutil.Encode(data)}, nil
}

func (l *Ledger) buildApprovalTx(req Request) (map[string]interface{}, error) {
	spender, err := req.Kwargs.String("spender")
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(spender) {
		return nil, errors.Wrapf(ErrBadKwarg, "spender %q", spender)
	}
	amount, err := req.Kwargs.BigInt("amount")
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{BodyData: hexutil.Encode(data)}, nil
}

func (l *Ledger) getMultiSendTxData(req Request) (map[string]interface{}, error) {
	txs, err := req.Kwargs.MultiSendTxs("multi_send_txs")
	if err != nil {
		return nil, err
	}
	packed, err := EncodeMultiSend(txs)
	if err != nil {
		return nil, err
	}
	data, err := multiSendABI.Pack("multiSend", packed)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{BodyData: hexutil.Encode(data)}, nil
}

// getRawSafeTransactionHash asks the Safe for the hash of the transaction
// at its current nonce. Refund fields are zero.
func (l *Ledger) getRawSafeTransactionHash(ctx context.Context, req Request) (map[string]interface{}, error) {
	safe, err := contractAddress(req)
	if err != nil {
		return nil, err
	}
	to, err := req.Kwargs.String("to_address")
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(to) {
		return nil, errors.Wrapf(ErrBadKwarg, "to address %q", to)
	}
	value, err := req.Kwargs.BigInt("value")
	if err != nil {
		return nil, err
	}
	data, err := req.Kwargs.Bytes("data")
	if err != nil {
		return nil, err
	}
	safeTxGas, err := req.Kwargs.BigInt("safe_tx_gas")
	if err != nil {
		return nil, err
	}
	operation, err := req.Kwargs.BigInt("operation")
	if err != nil {
		return nil, err
	}

	out, err := l.call(ctx, gnosisSafeABI, safe, "nonce")
	if err != nil {
		return nil, err
	}
	nonce := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	zero, nullAddress := new(big.Int), common.Address{}
	out, err = l.call(ctx, gnosisSafeABI, safe, "getTransactionHash",
		common.HexToAddress(to), value, data, uint8(operation.Uint64()), safeTxGas,
		zero, zero, nullAddress, nullAddress, nonce)
	if err != nil {
		return nil, err
	}
	hash := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return map[string]interface{}{BodyTxHash: hexutil.Encode(hash[:])}, nil
}
