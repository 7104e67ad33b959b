package contracts

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
	"pgregory.net/rapid"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const (
	testMarket = "0x1000000000000000000000000000000000000001"
	testToken  = "0x2000000000000000000000000000000000000002"
	testSafe   = "0x5555555555555555555555555555555555555555"
)

func testProperties() []OnChainProperty {
	return []OnChainProperty{
		{Id: big.NewInt(1), Owner: common.HexToAddress("0xaa"), Location: "Paris", Price: big.NewInt(500), ForSale: true},
		{Id: big.NewInt(2), Owner: common.HexToAddress("0xbb"), Location: "Lyon", Price: big.NewInt(1500), ForSale: true},
	}
}

func newTestLedger() (*Ledger, *SimulatedChain) {
	chain := NewSimulatedChain(100, testProperties())
	return NewLedger(chain, log.TestingLogger()), chain
}

func TestTypeHashes(t *testing.T) {
	assert.Equal(t, "0x47e79534a245952e8b16893a336b85a3d9ea9fa8c573f3d803afb92a79469218", domainSeparatorTypeHash.Hex())
	assert.Equal(t, "0xbb8310d486368db6bd6f849402fdd73ad53d316b5a4b2644ad6efe0f941286d8", safeTxTypeHash.Hex())
}

func TestGetPropertiesForSale(t *testing.T) {
	ledger, _ := newTestLedger()
	res, err := ledger.GetResponse(context.Background(), Request{
		Performative:    GetState,
		ContractID:      RealEstateSolution,
		ContractAddress: testMarket,
		Callable:        GetPropertiesForSale,
		ChainID:         GnosisChainID,
	})
	require.NoError(t, err)
	require.Equal(t, State, res.Performative)

	rows := res.Body[BodyData].([][]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1][0].(*big.Int).Int64())
	assert.Equal(t, "Lyon", rows[1][2])
	assert.Equal(t, int64(1500), rows[1][3].(*big.Int).Int64())
	assert.Equal(t, true, rows[1][4])
}

func TestCalldataBuilders(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	res, err := ledger.GetResponse(ctx, Request{
		Performative: GetState, ContractID: RealEstateSolution, ContractAddress: testMarket,
		Callable: GetBuyPropertyTx, Kwargs: Kwargs{"id": big.NewInt(2)},
	})
	require.NoError(t, err)
	require.Equal(t, State, res.Performative)
	buy := hexutil.MustDecode(res.Body[BodyData].(string))
	assert.Equal(t, realEstateABI.Methods["buyProperty"].ID, buy[:4])
	assert.Equal(t, common.LeftPadBytes([]byte{2}, 32), buy[4:])

	res, err = ledger.GetResponse(ctx, Request{
		Performative: GetState, ContractID: ERC20, ContractAddress: testToken,
		Callable: BuildApprovalTx, Kwargs: Kwargs{"spender": testMarket, "amount": big.NewInt(1500)},
	})
	require.NoError(t, err)
	approve := hexutil.MustDecode(res.Body[BodyData].(string))
	args, err := erc20ABI.Methods["approve"].Inputs.Unpack(approve[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testMarket), args[0])
	assert.Equal(t, int64(1500), args[1].(*big.Int).Int64())

	_, err = ledger.GetResponse(ctx, Request{Callable: BuildApprovalTx, Kwargs: Kwargs{"spender": "nope", "amount": 1}})
	assert.ErrorIs(t, err, ErrBadKwarg)
	_, err = ledger.GetResponse(ctx, Request{Callable: "transfer"})
	assert.ErrorIs(t, err, ErrUnknownCallable)
}

func TestMultiSendAndSafeHash(t *testing.T) {
	ledger, chain := newTestLedger()
	ctx := context.Background()

	txs := []MultiSendTx{
		{Operation: MultiSendCall, To: common.HexToAddress(testToken), Value: big.NewInt(0), Data: []byte{1, 2, 3}},
		{Operation: MultiSendCall, To: common.HexToAddress(testMarket), Data: []byte{4}},
	}
	res, err := ledger.GetResponse(ctx, Request{
		Performative: GetRawTransaction, ContractID: MultiSend, ContractAddress: DefaultMultiSendAddress,
		Callable: GetTxData, Kwargs: Kwargs{"multi_send_txs": txs},
	})
	require.NoError(t, err)
	require.Equal(t, RawTransaction, res.Performative)
	data := hexutil.MustDecode(res.Body[BodyData].(string))

	args, err := multiSendABI.Methods["multiSend"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	decoded, err := DecodeMultiSend(args[0].([]byte))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, txs[0].Data, decoded[0].Data)
	assert.Equal(t, common.HexToAddress(testMarket), decoded[1].To)

	chain.SafeNonce = big.NewInt(7)
	res, err = ledger.GetResponse(ctx, Request{
		Performative: GetState, ContractID: GnosisSafe, ContractAddress: testSafe,
		Callable: GetRawSafeTransactionHash, ChainID: GnosisChainID,
		Kwargs: Kwargs{
			"to_address":  DefaultMultiSendAddress,
			"value":       0,
			"data":        data,
			"safe_tx_gas": 0,
			"operation":   int(SafeDelegateCall),
		},
	})
	require.NoError(t, err)
	require.Equal(t, State, res.Performative)

	expected := SafeTxHash(big.NewInt(100), common.HexToAddress(testSafe), SafeTx{
		To:        common.HexToAddress(DefaultMultiSendAddress),
		Data:      data,
		Operation: SafeDelegateCall,
		Nonce:     big.NewInt(7),
	})
	assert.Equal(t, expected.Hex(), res.Body[BodyTxHash])
}

func TestSafeTxHashDependsOnNonce(t *testing.T) {
	safe := common.HexToAddress(testSafe)
	tx := SafeTx{To: common.HexToAddress(testToken), Nonce: big.NewInt(1)}
	h1 := SafeTxHash(big.NewInt(100), safe, tx)
	tx.Nonce = big.NewInt(2)
	assert.NotEqual(t, h1, SafeTxHash(big.NewInt(100), safe, tx))
	assert.NotEqual(t, h1, SafeTxHash(big.NewInt(1), safe, SafeTx{To: common.HexToAddress(testToken), Nonce: big.NewInt(1)}))
}

func TestEncodeMultiSendLayout(t *testing.T) {
	packed, err := EncodeMultiSend([]MultiSendTx{{
		Operation: MultiSendDelegateCall,
		To:        common.HexToAddress(testToken),
		Value:     big.NewInt(5),
		Data:      []byte{0xab, 0xcd},
	}})
	require.NoError(t, err)
	require.Len(t, packed, 1+20+32+32+2)
	assert.Equal(t, byte(1), packed[0])
	assert.Equal(t, common.HexToAddress(testToken).Bytes(), packed[1:21])
	assert.Equal(t, byte(5), packed[52])
	assert.Equal(t, byte(2), packed[84])
	assert.Equal(t, []byte{0xab, 0xcd}, packed[85:])

	_, err = EncodeMultiSend(nil)
	assert.Error(t, err)
	_, err = DecodeMultiSend(packed[:50])
	assert.Error(t, err)
}

func TestHashPayloadToHex(t *testing.T) {
	safeTxHash := strings.Repeat("ab", 32)
	p := NewSettlementPayload(safeTxHash, big.NewInt(0), big.NewInt(0), DefaultMultiSendAddress, []byte{0xde, 0xad}, SafeDelegateCall)

	out, err := HashPayloadToHex(p)
	require.NoError(t, err)

	zeroWord := strings.Repeat("0", 64)
	expected := safeTxHash + zeroWord + zeroWord + DefaultMultiSendAddress + "01" +
		zeroWord + zeroWord + types.NullAddress + types.NullAddress +
		zeroWord + zeroWord + zeroWord + "dead"
	assert.Equal(t, expected, out)

	decoded, err := DecodeHashPayload(out)
	require.NoError(t, err)
	assert.Equal(t, safeTxHash, decoded.SafeTxHash)
	assert.Equal(t, DefaultMultiSendAddress, decoded.ToAddress)
	assert.Equal(t, SafeDelegateCall, decoded.Operation)
	assert.Equal(t, []byte{0xde, 0xad}, decoded.Data)

	// the payload is a valid transaction preparation hash
	assert.NoError(t, types.NewTxPreparationPayload("tx_preparation_behaviour", out).ValidateBasic())

	p.SafeTxHash = "0x" + safeTxHash
	_, err = HashPayloadToHex(p)
	assert.ErrorIs(t, err, ErrMalformedSettlementPayload)

	p.SafeTxHash = safeTxHash
	p.ToAddress = "0x1234"
	_, err = HashPayloadToHex(p)
	assert.ErrorIs(t, err, ErrMalformedSettlementPayload)

	_, err = DecodeHashPayload(safeTxHash)
	assert.ErrorIs(t, err, ErrMalformedSettlementPayload)

	// the data tail must be whole hex bytes
	for _, tail := range []string{"d", "zz"} {
		_, err = DecodeHashPayload(out + tail)
		assert.ErrorIs(t, err, ErrMalformedSettlementPayload, tail)
	}
	decoded, err = DecodeHashPayload(strings.TrimSuffix(out, "dead"))
	require.NoError(t, err)
	assert.Empty(t, decoded.Data)
}

func TestHashPayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hash := rapid.StringMatching(`[0-9a-f]{64}`).Draw(t, "hash")
		value := big.NewInt(rapid.Int64Min(0).Draw(t, "value"))
		gas := big.NewInt(rapid.Int64Min(0).Draw(t, "gas"))
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")

		p := NewSettlementPayload(hash, value, gas, DefaultMultiSendAddress, data, SafeCall)
		out, err := HashPayloadToHex(p)
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := DecodeHashPayload(out)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.EtherValue.Cmp(value) != 0 || decoded.SafeTxGas.Cmp(gas) != 0 || string(decoded.Data) != string(data) {
			t.Fatalf("round trip mismatch: %+v", decoded)
		}
	})
}

func TestMockAPI(t *testing.T) {
	ledger, _ := newTestLedger()
	mock := NewMockAPI(ledger)
	mock.Respond(BuildApprovalTx, &Response{Performative: Error})

	res, err := mock.GetResponse(context.Background(), Request{Callable: BuildApprovalTx})
	require.NoError(t, err)
	assert.Equal(t, Error, res.Performative)

	res, err = mock.GetResponse(context.Background(), Request{
		Callable: GetPropertiesForSale, ContractAddress: testMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, State, res.Performative)
	assert.Len(t, mock.Requests(), 2)
}
