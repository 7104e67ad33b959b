package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

func TestLearningAbciApp(t *testing.T) {
	app := NewLearningAbciApp(0)
	require.NoError(t, app.Validate())

	assert.Equal(t, DefaultRoundTimeout, app.EventToTimeout[types.EventRoundTimeout])
	assert.Equal(t, time.Minute, NewLearningAbciApp(time.Minute).EventToTimeout[types.EventRoundTimeout])

	transitions := []struct {
		from  RoundType
		event types.Event
		to    RoundType
	}{
		{APICheckRound, types.EventDone, DecisionMakingRound},
		{APICheckRound, types.EventNoMajority, APICheckRound},
		{APICheckRound, types.EventRoundTimeout, APICheckRound},
		{DecisionMakingRound, types.EventTransact, TxPreparationRound},
		{DecisionMakingRound, types.EventDone, FinishedDecisionMakingRound},
		{DecisionMakingRound, types.EventError, FinishedDecisionMakingRound},
		{DecisionMakingRound, types.EventNoMajority, DecisionMakingRound},
		{TxPreparationRound, types.EventDone, FinishedTxPreparationRound},
		{TxPreparationRound, types.EventRoundTimeout, TxPreparationRound},
	}
	for _, tr := range transitions {
		next, ok := app.Next(tr.from, tr.event)
		require.True(t, ok, "%s on %s", tr.from, tr.event)
		assert.Equal(t, tr.to, next, "%s on %s", tr.from, tr.event)
	}

	_, ok := app.Next(APICheckRound, types.EventTransact)
	assert.False(t, ok)
	_, ok = app.Next(FinishedTxPreparationRound, types.EventDone)
	assert.False(t, ok)

	assert.True(t, app.IsFinal(FinishedDecisionMakingRound))
	assert.True(t, app.IsFinal(FinishedTxPreparationRound))
	assert.False(t, app.IsFinal(TxPreparationRound))
}

func TestAbciAppValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(app *AbciApp)
	}{
		{"initial round not initial", func(app *AbciApp) {
			app.InitialRound = DecisionMakingRound
		}},
		{"missing no majority", func(app *AbciApp) {
			delete(app.Transitions[APICheckRound], types.EventNoMajority)
		}},
		{"missing timeout", func(app *AbciApp) {
			delete(app.Transitions[TxPreparationRound], types.EventRoundTimeout)
		}},
		{"unknown target", func(app *AbciApp) {
			app.Transitions[APICheckRound][types.EventDone] = RoundType("nowhere")
		}},
		{"final with transitions", func(app *AbciApp) {
			app.Transitions[FinishedDecisionMakingRound][types.EventDone] = APICheckRound
		}},
		{"emitted event not routed", func(app *AbciApp) {
			delete(app.Transitions[DecisionMakingRound], types.EventError)
		}},
		{"routed event never emitted", func(app *AbciApp) {
			app.Transitions[APICheckRound][types.EventTransact] = TxPreparationRound
		}},
		{"round without factory", func(app *AbciApp) {
			delete(app.Rounds, TxPreparationRound)
		}},
		{"round outside the table", func(app *AbciApp) {
			app.Rounds["orphan_round"] = degenerateSpec("orphan_round")
		}},
		{"unreachable round", func(app *AbciApp) {
			orphan := RoundType("orphan_round")
			app.Rounds[orphan] = collectSameSpec(&CollectSameConfig{
				Type:            orphan,
				PayloadKind:     types.PayloadAPICheck,
				DoneEvent:       types.EventDone,
				NoMajorityEvent: types.EventNoMajority,
				SelectionKeys:   []string{state.KeyPrice, state.KeyIPFSHash},
			})
			app.Transitions[orphan] = map[types.Event]RoundType{
				types.EventDone:         FinishedDecisionMakingRound,
				types.EventNoMajority:   orphan,
				types.EventRoundTimeout: orphan,
			}
		}},
		{"final without post conditions", func(app *AbciApp) {
			delete(app.PostConditions, FinishedTxPreparationRound)
		}},
		{"post condition never written", func(app *AbciApp) {
			app.PostConditions[FinishedDecisionMakingRound] = []string{"unknown_key"}
		}},
		{"post condition on non final", func(app *AbciApp) {
			app.PostConditions[TxPreparationRound] = []string{}
		}},
		{"key in pre and post conditions", func(app *AbciApp) {
			app.PreConditions[APICheckRound] = []string{state.KeyMostVotedTxHash}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := NewLearningAbciApp(0)
			tc.mutate(app)
			assert.ErrorIs(t, app.Validate(), ErrInvalidTransitionTable)
		})
	}
}

func TestAbciAppConditions(t *testing.T) {
	app := NewLearningAbciApp(0)
	setup := makeSetup(t, makeAgents(t, 4))
	require.NoError(t, app.CheckPreConditions(setup))

	app.PreConditions[APICheckRound] = []string{state.KeyPrice}
	require.NoError(t, app.CheckPreConditions(setup))
	withPrice, err := setup.Update(map[string]interface{}{state.KeyPrice: 1.0})
	require.NoError(t, err)
	assert.ErrorIs(t, app.CheckPreConditions(withPrice), ErrPreConditionViolated)

	assert.Equal(t, []string{state.KeyMostVotedTxHash}, app.CheckPostConditions(FinishedTxPreparationRound, setup))
	assert.Empty(t, app.CheckPostConditions(FinishedDecisionMakingRound, setup))
}

func TestAbciAppNewRound(t *testing.T) {
	app := NewLearningAbciApp(0)
	setup := makeSetup(t, makeAgents(t, 4))

	r, err := app.NewRound(TxPreparationRound, setup, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, TxPreparationRound, r.Type())
	assert.Equal(t, int64(5), r.Count())
	assert.Equal(t, types.PayloadTxPreparation, r.PayloadKind())

	_, err = app.NewRound("unknown_round", setup, 0, nil)
	assert.ErrorIs(t, err, ErrUnknownRound)

	_, err = app.NewRound(APICheckRound, state.NewSynchronizedData(state.NewDocument()), 0, nil)
	assert.ErrorIs(t, err, state.ErrMissingKey)
}
