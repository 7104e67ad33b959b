package behaviour

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/contracts"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const TxPreparationBehaviourID = "tx_preparation_behaviour"

var errUnexpectedResponse = errors.New("unexpected contract response")

// TxPreparationBehaviour batches approve and buy into a multisend call and
// submits the settlement payload of the Safe transaction executing it.
type TxPreparationBehaviour struct {
	*Context
}

var _ Behaviour = (*TxPreparationBehaviour)(nil)

func NewTxPreparationBehaviour(c *Context) *TxPreparationBehaviour {
	return &TxPreparationBehaviour{Context: c}
}

func (b *TxPreparationBehaviour) BehaviourID() string { return TxPreparationBehaviourID }
func (b *TxPreparationBehaviour) MatchingRound() consensus.RoundType {
	return consensus.TxPreparationRound
}

func (b *TxPreparationBehaviour) AsyncAct(ctx context.Context, data *state.SynchronizedData) (types.Payload, error) {
	txHash, err := b.settlementPayload(ctx, data)
	if err != nil {
		b.logger().Error("could not prepare the buy transaction", "err", err)
		txHash = types.EmptyTxHash
	}
	return types.NewTxPreparationPayload(b.BehaviourID(), txHash), nil
}

func (b *TxPreparationBehaviour) settlementPayload(ctx context.Context, data *state.SynchronizedData) (string, error) {
	approve, err := b.approveTx(ctx, data)
	if err != nil {
		return "", errors.Wrap(err, "approve")
	}
	buy, err := b.buyTx(ctx, data)
	if err != nil {
		return "", errors.Wrap(err, "buy")
	}

	txData, err := b.multisendTx(ctx, approve, buy)
	if err != nil {
		return "", errors.Wrap(err, "multisend")
	}
	safeTxHash, err := b.safeTxHash(ctx, data, txData)
	if err != nil {
		return "", errors.Wrap(err, "safe tx hash")
	}

	return contracts.HashPayloadToHex(contracts.NewSettlementPayload(
		safeTxHash, new(big.Int), new(big.Int), b.Params.MultisendAddress, txData, contracts.SafeDelegateCall))
}

func (b *TxPreparationBehaviour) approveTx(ctx context.Context, data *state.SynchronizedData) ([]byte, error) {
	amount := data.PropertyValue()
	if amount == nil {
		return nil, errors.Errorf("no %s in document", state.KeyPropertyValue)
	}
	return b.stateData(ctx, contracts.Request{
		Performative:    contracts.GetState,
		ContractID:      contracts.ERC20,
		ContractAddress: b.Params.RealEstateToken,
		Callable:        contracts.BuildApprovalTx,
		ChainID:         b.Params.ChainID,
		Kwargs: contracts.Kwargs{
			"spender": b.Params.RealEstateContractAddress,
			"amount":  amount,
		},
	})
}

func (b *TxPreparationBehaviour) buyTx(ctx context.Context, data *state.SynchronizedData) ([]byte, error) {
	id, err := data.PropertyID()
	if err != nil {
		return nil, err
	}
	return b.stateData(ctx, contracts.Request{
		Performative:    contracts.GetState,
		ContractID:      contracts.RealEstateSolution,
		ContractAddress: b.Params.RealEstateContractAddress,
		Callable:        contracts.GetBuyPropertyTx,
		ChainID:         b.Params.ChainID,
		Kwargs:          contracts.Kwargs{"id": id},
	})
}

func (b *TxPreparationBehaviour) multisendTx(ctx context.Context, approve, buy []byte) ([]byte, error) {
	res, err := b.Contracts.GetResponse(ctx, contracts.Request{
		Performative:    contracts.GetRawTransaction,
		ContractID:      contracts.MultiSend,
		ContractAddress: b.Params.MultisendAddress,
		Callable:        contracts.GetTxData,
		ChainID:         b.Params.ChainID,
		Kwargs: contracts.Kwargs{
			"multi_send_txs": []contracts.MultiSendTx{
				{
					Operation: contracts.MultiSendCall,
					To:        common.HexToAddress(b.Params.RealEstateToken),
					Value:     new(big.Int),
					Data:      approve,
				},
				{
					Operation: contracts.MultiSendCall,
					To:        common.HexToAddress(b.Params.RealEstateContractAddress),
					Value:     new(big.Int),
					Data:      buy,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return hexBody(res, contracts.RawTransaction, contracts.BodyData)
}

func (b *TxPreparationBehaviour) safeTxHash(ctx context.Context, data *state.SynchronizedData, txData []byte) (string, error) {
	safe, err := data.SafeContractAddress()
	if err != nil {
		return "", err
	}
	res, err := b.Contracts.GetResponse(ctx, contracts.Request{
		Performative:    contracts.GetState,
		ContractID:      contracts.GnosisSafe,
		ContractAddress: safe.String(),
		Callable:        contracts.GetRawSafeTransactionHash,
		ChainID:         b.Params.ChainID,
		Kwargs: contracts.Kwargs{
			"to_address":  b.Params.MultisendAddress,
			"value":       new(big.Int),
			"data":        txData,
			"safe_tx_gas": new(big.Int),
			"operation":   uint8(contracts.SafeDelegateCall),
		},
	})
	if err != nil {
		return "", err
	}
	if res.Performative != contracts.State {
		return "", errors.Wrapf(errUnexpectedResponse, "want %s, got %s", contracts.State, res.Performative)
	}
	hash, ok := res.Body[contracts.BodyTxHash].(string)
	if !ok {
		return "", errors.Wrapf(errUnexpectedResponse, "no %s in body", contracts.BodyTxHash)
	}
	return strings.TrimPrefix(hash, "0x"), nil
}

func (b *TxPreparationBehaviour) stateData(ctx context.Context, req contracts.Request) ([]byte, error) {
	res, err := b.Contracts.GetResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return hexBody(res, contracts.State, contracts.BodyData)
}

// hexBody decodes the 0x prefixed hex string under key, provided res has
// the expected performative.
func hexBody(res *contracts.Response, want contracts.Performative, key string) ([]byte, error) {
	if res.Performative != want {
		return nil, errors.Wrapf(errUnexpectedResponse, "want %s, got %s", want, res.Performative)
	}
	s, ok := res.Body[key].(string)
	if !ok {
		return nil, errors.Wrapf(errUnexpectedResponse, "no %s in body", key)
	}
	return hexutil.Decode(s)
}
