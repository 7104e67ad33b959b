package node

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/Tanuj-solulab/learning-service-real-estate/config"
	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/privval"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

func testNodeConfig(t *testing.T, participants ...string) *config.Config {
	conf := config.TestConfig().SetRoot(t.TempDir())
	config.EnsureRoot(conf.RootDir)
	conf.ABCI = config.ABCISocket
	conf.ProxyApp = "tcp://127.0.0.1:0"
	conf.Params.AllParticipants = participants
	conf.Params.SafeContractAddress = testSafe.String()
	return conf
}

func TestMakeSetupData(t *testing.T) {
	a, b := types.NewMockPA().GetAddress(), types.NewMockPA().GetAddress()
	conf := testNodeConfig(t, a.String()+","+b.String())

	setup, err := MakeSetupData(conf.Params)
	require.NoError(t, err)
	all, err := setup.AllParticipants()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	threshold, err := setup.ConsensusThreshold()
	require.NoError(t, err)
	assert.Equal(t, 2, threshold)
	safe, err := setup.SafeContractAddress()
	require.NoError(t, err)
	assert.True(t, testSafe.Equal(safe))

	assert.True(t, isParticipant(setup, a))
	assert.False(t, isParticipant(setup, types.NewMockPA().GetAddress()))

	conf.Params.AllParticipants = []string{"not-an-address"}
	_, err = MakeSetupData(conf.Params)
	assert.Error(t, err)
}

func TestDefaultNewNodeSocket(t *testing.T) {
	conf := testNodeConfig(t)
	pv, err := privval.LoadOrGenFilePV(conf.AgentKeyFile())
	require.NoError(t, err)
	conf.Params.AllParticipants = []string{pv.GetAddress().String()}

	n, err := DefaultNewNode(conf, nil, log.TestingLogger())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(conf.RootDir, "config", "agent_key.json"))
	assert.True(t, pv.GetAddress().Equal(n.PrivAgent().GetAddress()))

	rs := n.Application().RoundState()
	assert.Equal(t, consensus.APICheckRound.String(), rs.RoundType)
	assert.Equal(t, 1, rs.Threshold)
	assert.True(t, n.MetricSet().HasMetrics(consensus.MetricLabel))
	assert.Equal(t, "", n.RPCAddress())
	assert.True(t, n.Application().SynchronizedData().Document().Has(state.KeyAllParticipants))
}

func TestNewNodeEmbeddedNeedsTendermintConfig(t *testing.T) {
	conf := testNodeConfig(t)
	conf.ABCI = config.ABCIEmbedded
	pv := privval.GenFilePV(conf.AgentKeyFile())
	conf.Params.AllParticipants = []string{pv.GetAddress().String()}

	_, err := NewNode(conf, nil, pv, log.TestingLogger())
	assert.Error(t, err)
}

func TestNewNodeInvalidConfig(t *testing.T) {
	conf := testNodeConfig(t)
	_, err := NewNode(conf, nil, privval.GenFilePV(""), log.TestingLogger())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBlobsUnreachable(t *testing.T) {
	a, b := types.NewMockPA().GetAddress(), types.NewMockPA().GetAddress()

	conf := testNodeConfig(t, a.String())
	assert.False(t, blobsUnreachable(conf), "a single agent reads its own snapshots")

	conf = testNodeConfig(t, a.String()+","+b.String())
	assert.True(t, blobsUnreachable(conf))

	conf.Blob.Backend = config.BlobBackendRedis
	assert.True(t, conf.Blob.Shared())
	assert.False(t, blobsUnreachable(conf))
}
