package consensus

import (
	"crypto/ecdsa"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var testSafe = types.MustAddress("0x5555555555555555555555555555555555555555")

func getTestLogWithDebug() log.Logger {
	return log.NewFilter(log.TestingLogger(), log.AllowDebug())
}

type testAgent struct {
	key  *ecdsa.PrivateKey
	addr types.Address
}

// makeAgents returns n agents sorted by address.
func makeAgents(t *testing.T, n int) []testAgent {
	agents := make([]testAgent, n)
	for i := range agents {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		agents[i] = testAgent{key: key, addr: types.GetAddress(crypto.PubkeyToAddress(key.PublicKey))}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].addr < agents[j].addr })
	return agents
}

func addresses(agents []testAgent) []types.Address {
	addrs := make([]types.Address, len(agents))
	for i, a := range agents {
		addrs[i] = a.addr
	}
	return addrs
}

func makeSetup(t *testing.T, agents []testAgent) *state.SynchronizedData {
	setup, err := state.MakeSetupData(addresses(agents), testSafe, 0)
	require.NoError(t, err)
	return setup
}

func (a testAgent) signTx(t *testing.T, roundCount int64, p types.Payload) []byte {
	tx, err := types.NewTx(a.addr, roundCount, p)
	require.NoError(t, err)
	digest, err := tx.SignBytes()
	require.NoError(t, err)
	tx.Signature, err = crypto.Sign(digest, a.key)
	require.NoError(t, err)
	bz, err := tx.Bytes()
	require.NoError(t, err)
	return bz
}

func priceHash(price float64, hash string) *types.APICheckPayload {
	return types.NewAPICheckPayload(&price, &hash)
}

func decision(t *testing.T, event types.Event, property map[string]interface{}) *types.DecisionMakingPayload {
	p, err := types.NewDecisionMakingPayload(event, property)
	require.NoError(t, err)
	return p
}
