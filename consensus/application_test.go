package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abcitypes "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/events"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	tmdb "github.com/tendermint/tm-db"

	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/store"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

type testChain struct {
	app    *Application
	store  *store.KVStore
	agents []testAgent
	height int64
	now    time.Time
}

func newTestChain(t *testing.T, n int, options ...ApplicationOption) *testChain {
	agents := makeAgents(t, n)
	kv := store.NewKVStoreWithDB(tmdb.NewMemDB(), getTestLogWithDebug())
	options = append(options, SetStore(kv))
	app, err := NewApplication(NewLearningAbciApp(0), "app_test", makeSetup(t, agents), getTestLogWithDebug(), options...)
	require.NoError(t, err)

	tc := &testChain{app: app, store: kv, agents: agents, now: time.Unix(1700000000, 0).UTC()}
	app.InitChain(abcitypes.RequestInitChain{Time: tc.now, ChainId: "app_test"})
	return tc
}

// block runs one full block of txs, advancing block time by step.
func (tc *testChain) block(step time.Duration, txs ...[]byte) []abcitypes.ResponseDeliverTx {
	tc.height++
	tc.now = tc.now.Add(step)
	tc.app.BeginBlock(abcitypes.RequestBeginBlock{Header: tmproto.Header{Height: tc.height, Time: tc.now}})
	responses := make([]abcitypes.ResponseDeliverTx, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, tc.app.DeliverTx(abcitypes.RequestDeliverTx{Tx: tx}))
	}
	tc.app.EndBlock(abcitypes.RequestEndBlock{Height: tc.height})
	tc.app.Commit()
	return responses
}

func (tc *testChain) all(t *testing.T, p types.Payload) [][]byte {
	count := tc.app.RoundState().RoundCount
	txs := make([][]byte, len(tc.agents))
	for i, a := range tc.agents {
		txs[i] = a.signTx(t, count, p)
	}
	return txs
}

func TestApplicationHappyPath(t *testing.T) {
	ms := metric.NewMetricSet()
	tc := newTestChain(t, 4, SetMetricSet(ms))

	var started []cstypes.RoundState
	err := tc.app.EventSwitch().AddListenerForEvent("test", EventNewRound, func(data events.EventData) {
		started = append(started, data.(cstypes.RoundState))
	})
	require.NoError(t, err)

	rs := tc.app.RoundState()
	assert.Equal(t, APICheckRound.String(), rs.RoundType)
	assert.Equal(t, int64(0), rs.RoundCount)
	assert.Equal(t, 3, rs.Threshold)

	for _, res := range tc.block(time.Second, tc.all(t, priceHash(1.5, testBlobHash))...) {
		assert.Equal(t, CodeTypeOK, res.Code, res.Log)
	}
	rs = tc.app.RoundState()
	assert.Equal(t, DecisionMakingRound.String(), rs.RoundType)
	assert.Equal(t, int64(1), rs.RoundCount)
	assert.Equal(t, types.EventDone, rs.LastEvent)

	tc.block(time.Second, tc.all(t, decision(t, types.EventTransact, map[string]interface{}{
		state.KeyPropertyID:    2,
		state.KeyPropertyValue: 1500,
	}))...)
	assert.Equal(t, TxPreparationRound.String(), tc.app.RoundState().RoundType)

	tc.block(time.Second, tc.all(t, types.NewTxPreparationPayload("tx_preparation_behaviour", "abcdef"))...)
	rs = tc.app.RoundState()
	assert.Equal(t, FinishedTxPreparationRound.String(), rs.RoundType)
	assert.Equal(t, int64(3), rs.RoundCount)
	assert.True(t, rs.IsFinal())

	require.Len(t, started, 3)
	assert.Equal(t, DecisionMakingRound.String(), started[0].RoundType)
	assert.Equal(t, FinishedTxPreparationRound.String(), started[2].RoundType)

	data := tc.app.SynchronizedData()
	assert.Equal(t, "abcdef", *data.MostVotedTxHash())
	assert.Equal(t, int64(1500), data.PropertyValue().Int64())

	committed := tc.app.State()
	assert.Equal(t, int64(3), committed.LastBlockHeight)
	assert.Equal(t, data.Document().Hash(), committed.AppHash)

	loaded, err := tc.store.LoadState()
	require.NoError(t, err)
	assert.Equal(t, committed.AppHash, loaded.AppHash)
	first, err := tc.store.LoadDocument(1)
	require.NoError(t, err)
	assert.Equal(t, 1.5, *state.NewSynchronizedData(first).Price())
	assert.False(t, first.Has(state.KeyPropertyID))

	item := ms.GetMetrics(MetricLabel)
	require.NotNil(t, item)
	assert.Contains(t, item.JSONString(), FinishedTxPreparationRound.String())

	// terminal: no payloads, no timeouts
	res := tc.app.CheckTx(abcitypes.RequestCheckTx{Tx: tc.agents[0].signTx(t, 3, priceHash(1, testBlobHash))})
	assert.Equal(t, CodeTypeInvalidPayload, res.Code)
	tc.block(time.Hour)
	assert.Equal(t, FinishedTxPreparationRound.String(), tc.app.RoundState().RoundType)
}

func TestApplicationDecisionDone(t *testing.T) {
	tc := newTestChain(t, 4)
	tc.block(time.Second, tc.all(t, priceHash(1.5, testBlobHash))...)
	before := tc.app.SynchronizedData().Document().Hash()

	tc.block(time.Second, tc.all(t, decision(t, types.EventDone, nil))...)
	rs := tc.app.RoundState()
	assert.Equal(t, FinishedDecisionMakingRound.String(), rs.RoundType)
	assert.Equal(t, before, tc.app.SynchronizedData().Document().Hash())
}

func TestApplicationRejectsTxs(t *testing.T) {
	tc := newTestChain(t, 4)
	agent := tc.agents[0]
	p := priceHash(1.5, testBlobHash)

	check := func(tx []byte) uint32 {
		return tc.app.CheckTx(abcitypes.RequestCheckTx{Tx: tx}).Code
	}

	assert.Equal(t, CodeTypeOK, check(agent.signTx(t, 0, p)))
	assert.Equal(t, CodeTypeEncodingError, check([]byte("garbage")))
	assert.Equal(t, CodeTypeStaleRound, check(agent.signTx(t, 5, p)))

	// signed by another key on behalf of agent
	impostor := testAgent{key: tc.agents[1].key, addr: agent.addr}
	assert.Equal(t, CodeTypeBadSignature, check(impostor.signTx(t, 0, p)))

	outsider := makeAgents(t, 1)[0]
	assert.Equal(t, CodeTypeInvalidPayload, check(outsider.signTx(t, 0, p)))

	wrongKind := agent.signTx(t, 0, types.NewTxPreparationPayload("tx_preparation_behaviour", "ab"))
	assert.Equal(t, CodeTypeInvalidPayload, check(wrongKind))

	res := tc.block(time.Second, agent.signTx(t, 0, p), agent.signTx(t, 0, priceHash(2, testBlobHash)))
	assert.Equal(t, CodeTypeOK, res[0].Code)
	assert.Equal(t, CodeTypeInvalidPayload, res[1].Code)
	assert.Equal(t, 1, tc.app.RoundState().Submitted)
}

func TestApplicationRoundTimeout(t *testing.T) {
	tc := newTestChain(t, 4)
	hash := tc.app.SynchronizedData().Document().Hash()

	// two of four agree; quorum needs three
	agents := tc.agents
	tc.block(time.Second, agents[0].signTx(t, 0, priceHash(1, testBlobHash)), agents[1].signTx(t, 0, priceHash(1, testBlobHash)))
	assert.Equal(t, int64(0), tc.app.RoundState().RoundCount)

	tc.block(DefaultRoundTimeout)
	rs := tc.app.RoundState()
	assert.Equal(t, APICheckRound.String(), rs.RoundType)
	assert.Equal(t, int64(1), rs.RoundCount)
	assert.Equal(t, types.EventRoundTimeout, rs.LastEvent)
	assert.Equal(t, 0, rs.Submitted)
	assert.Equal(t, hash, tc.app.SynchronizedData().Document().Hash())

	// payloads of the expired instance are stale
	res := tc.app.CheckTx(abcitypes.RequestCheckTx{Tx: agents[2].signTx(t, 0, priceHash(1, testBlobHash))})
	assert.Equal(t, CodeTypeStaleRound, res.Code)

	// the fresh instance still reaches quorum
	tc.block(time.Second, tc.all(t, priceHash(1, testBlobHash))...)
	assert.Equal(t, DecisionMakingRound.String(), tc.app.RoundState().RoundType)
}

func TestApplicationNoMajority(t *testing.T) {
	tc := newTestChain(t, 4)
	a := tc.agents
	tc.block(time.Second,
		a[0].signTx(t, 0, priceHash(1, testBlobHash)),
		a[1].signTx(t, 0, priceHash(2, testBlobHash)),
		a[2].signTx(t, 0, priceHash(3, testBlobHash)),
	)
	rs := tc.app.RoundState()
	assert.Equal(t, APICheckRound.String(), rs.RoundType)
	assert.Equal(t, int64(1), rs.RoundCount)
	assert.Equal(t, types.EventNoMajority, rs.LastEvent)
}

func TestApplicationQuery(t *testing.T) {
	tc := newTestChain(t, 4)
	tc.block(time.Second, tc.all(t, priceHash(1.5, testBlobHash))...)
	tc.block(time.Second)

	res := tc.app.Query(abcitypes.RequestQuery{Path: "/document"})
	require.Equal(t, CodeTypeOK, res.Code, res.Log)
	current := state.NewDocument()
	require.NoError(t, current.UnmarshalJSON(res.Value))
	assert.Equal(t, tc.app.SynchronizedData().Document().Hash(), current.Hash())

	res = tc.app.Query(abcitypes.RequestQuery{Path: "/document", Height: 1})
	require.Equal(t, CodeTypeOK, res.Code, res.Log)

	res = tc.app.Query(abcitypes.RequestQuery{Path: "/document", Height: 99})
	assert.Equal(t, CodeTypeUnknownQuery, res.Code)

	res = tc.app.Query(abcitypes.RequestQuery{Path: "/round"})
	require.Equal(t, CodeTypeOK, res.Code)
	var rs cstypes.RoundState
	require.NoError(t, json.Unmarshal(res.Value, &rs))
	assert.Equal(t, DecisionMakingRound.String(), rs.RoundType)

	res = tc.app.Query(abcitypes.RequestQuery{Path: "/unknown"})
	assert.Equal(t, CodeTypeUnknownQuery, res.Code)

	info := tc.app.Info(abcitypes.RequestInfo{})
	assert.Equal(t, int64(0), info.LastBlockHeight)
}

func TestNewApplicationFailures(t *testing.T) {
	setup := makeSetup(t, makeAgents(t, 4))

	broken := NewLearningAbciApp(0)
	delete(broken.Transitions[APICheckRound], types.EventDone)
	_, err := NewApplication(broken, "app_test", setup, nil)
	assert.ErrorIs(t, err, ErrInvalidTransitionTable)

	guarded := NewLearningAbciApp(0)
	guarded.PreConditions[APICheckRound] = []string{state.KeyPrice}
	withPrice, err := setup.Update(map[string]interface{}{state.KeyPrice: 1.0})
	require.NoError(t, err)
	_, err = NewApplication(guarded, "app_test", withPrice, nil)
	assert.ErrorIs(t, err, ErrPreConditionViolated)
}
