package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var (
	testParticipants = []types.Address{
		types.MustAddress("0x1111111111111111111111111111111111111111"),
		types.MustAddress("0x2222222222222222222222222222222222222222"),
		types.MustAddress("0x3333333333333333333333333333333333333333"),
		types.MustAddress("0x4444444444444444444444444444444444444444"),
	}
	testSafe = types.MustAddress("0x5555555555555555555555555555555555555555")
)

func TestDocumentGet(t *testing.T) {
	doc, err := MakeDocument(map[string]interface{}{
		"a": 1,
		"b": "x",
		"c": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Version())

	a, err := Get[int](doc, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a)

	_, err = Get[int](doc, "missing")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = Get[int](doc, "b")
	assert.ErrorIs(t, err, ErrDeserialization)

	assert.Equal(t, 7, GetOptional(doc, "missing", 7))
	assert.Equal(t, 7, GetOptional(doc, "c", 7))
	assert.Equal(t, 7, GetOptional(doc, "b", 7))
	assert.Equal(t, "x", GetOptional(doc, "b", ""))
}

func TestDocumentUpdateIsFunctional(t *testing.T) {
	doc, err := MakeDocument(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)

	next, err := doc.Update(map[string]interface{}{"b": 3, "c": "new"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), next.Version())
	assert.Equal(t, 2, GetOptional(doc, "b", 0), "previous version unchanged")
	assert.False(t, doc.Has("c"))
	assert.Equal(t, 1, GetOptional(next, "a", 0))
	assert.Equal(t, 3, GetOptional(next, "b", 0))
	assert.Equal(t, "new", GetOptional(next, "c", ""))
	assert.NotEqual(t, doc.Hash(), next.Hash())
}

func TestDocumentUpdateRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.MapOf(rapid.StringN(1, 8, -1), rapid.Int()).Draw(t, "base")
		values := make(map[string]interface{}, len(base))
		for k, v := range base {
			values[k] = v
		}
		doc, err := MakeDocument(values)
		if err != nil {
			t.Fatal(err)
		}

		key := rapid.StringN(1, 8, -1).Draw(t, "key")
		value := rapid.Int().Draw(t, "value")
		next, err := doc.Update(map[string]interface{}{key: value})
		if err != nil {
			t.Fatal(err)
		}

		got, err := Get[int](next, key)
		if err != nil || got != value {
			t.Fatalf("get(%q) = %d, %v; want %d", key, got, err, value)
		}
		for k, v := range base {
			if k == key {
				continue
			}
			if got := GetOptional(next, k, v+1); got != v {
				t.Fatalf("key %q changed from %d to %d", k, v, got)
			}
		}
	})
}

func TestDocumentCanonicalBytes(t *testing.T) {
	d1, err := MakeDocument(map[string]interface{}{
		"m": map[string]interface{}{"z": 1, "a": 2},
		"n": 1500,
	})
	require.NoError(t, err)
	d2, err := MakeDocument(map[string]interface{}{
		"n": "placeholder",
	})
	require.NoError(t, err)
	d2, err = d2.Update(map[string]interface{}{
		"n": 1500,
		"m": map[string]int{"a": 2, "z": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"m":{"a":2,"z":1},"n":1500}`, string(d1.Bytes()))
	assert.Equal(t, d1.Bytes(), d2.Bytes())
	assert.Equal(t, d1.Hash(), d2.Hash())
}

func TestDocumentJSON(t *testing.T) {
	doc, err := MakeDocument(map[string]interface{}{"price": 0.5})
	require.NoError(t, err)
	doc, err = doc.Update(map[string]interface{}{"ipfs_hash": "f01701220ab"})
	require.NoError(t, err)

	bz, err := doc.MarshalJSON()
	require.NoError(t, err)

	loaded := NewDocument()
	require.NoError(t, loaded.UnmarshalJSON(bz))
	assert.Equal(t, doc.Version(), loaded.Version())
	assert.Equal(t, doc.Bytes(), loaded.Bytes())

	assert.ErrorIs(t, loaded.UnmarshalJSON([]byte(`{"data": 3}`)), ErrDeserialization)
}

func TestGetCollection(t *testing.T) {
	doc, err := MakeDocument(map[string]interface{}{
		"good": map[string]interface{}{
			testParticipants[1].String(): map[string]interface{}{"price": 1},
			testParticipants[0].String(): map[string]interface{}{"price": 1},
		},
		"bad":  []int{1, 2},
		"null": nil,
	})
	require.NoError(t, err)

	c, err := doc.GetCollection("good")
	require.NoError(t, err)
	assert.Equal(t, []string{testParticipants[0].String(), testParticipants[1].String()}, c.Participants())

	var payload struct{ Price int }
	require.NoError(t, c.Decode(testParticipants[1].String(), &payload))
	assert.Equal(t, 1, payload.Price)
	assert.ErrorIs(t, c.Decode(testParticipants[2].String(), &payload), ErrMissingKey)

	_, err = doc.GetCollection("bad")
	assert.ErrorIs(t, err, ErrDeserialization)
	_, err = doc.GetCollection("null")
	assert.ErrorIs(t, err, ErrDeserialization)
	_, err = doc.GetCollection("missing")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestSynchronizedData(t *testing.T) {
	data, err := MakeSetupData(testParticipants, testSafe, 0)
	require.NoError(t, err)

	n, err := data.NbParticipants()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	threshold, err := data.ConsensusThreshold()
	require.NoError(t, err)
	assert.Equal(t, 3, threshold)

	safe, err := data.SafeContractAddress()
	require.NoError(t, err)
	assert.Equal(t, testSafe, safe)

	assert.Nil(t, data.Price())
	assert.Nil(t, data.IPFSHash())
	assert.Nil(t, data.PropertyValue())
	assert.Nil(t, data.MostVotedTxHash())

	_, err = data.PropertyID()
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = data.TxSubmitter()
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = data.ParticipantToPriceRound()
	assert.ErrorIs(t, err, ErrMissingKey)

	price := 0.42
	data, err = data.Update(map[string]interface{}{
		KeyPrice:         &price,
		KeyPropertyID:    2,
		KeyPropertyValue: 1500,
	})
	require.NoError(t, err)

	assert.Equal(t, price, *data.Price())
	id, err := data.PropertyID()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id.Int64())
	assert.Equal(t, int64(1500), data.PropertyValue().Int64())
}

func TestSetupDataThreshold(t *testing.T) {
	data, err := MakeSetupData(testParticipants, testSafe, 4)
	require.NoError(t, err)
	threshold, err := data.ConsensusThreshold()
	require.NoError(t, err)
	assert.Equal(t, 4, threshold)

	_, err = MakeSetupData(testParticipants, testSafe, 2)
	assert.ErrorIs(t, err, types.ErrInvalidThreshold)

	_, err = MakeSetupData(nil, testSafe, 0)
	assert.Error(t, err)
}

func TestStateCopy(t *testing.T) {
	data, err := MakeSetupData(testParticipants, testSafe, 0)
	require.NoError(t, err)

	s := MakeGenesisState("test-chain", data)
	c := s.Copy()
	c.AppHash[0] ^= 0xff
	c.LastBlockHeight = 5

	assert.NotEqual(t, s.AppHash, c.AppHash)
	assert.Equal(t, int64(0), s.LastBlockHeight)
	assert.Same(t, s.Data, c.Data)
}
