package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

func TestTimeoutsOrder(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	to := NewTimeouts()
	to.Add(t0.Add(30*time.Second), types.EventRoundTimeout, 2)
	to.Add(t0.Add(10*time.Second), types.EventRoundTimeout, 1)
	to.Add(t0.Add(10*time.Second), types.EventRoundTimeout, 0)
	require.Equal(t, 3, to.Len())

	_, ok := to.PopExpired(t0)
	assert.False(t, ok)

	ti, ok := to.PopExpired(t0.Add(10 * time.Second))
	require.True(t, ok)
	assert.Equal(t, int64(0), ti.RoundCount)
	ti, ok = to.PopExpired(t0.Add(10 * time.Second))
	require.True(t, ok)
	assert.Equal(t, int64(1), ti.RoundCount)
	_, ok = to.PopExpired(t0.Add(29 * time.Second))
	assert.False(t, ok)

	ti, ok = to.PopExpired(t0.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, int64(2), ti.RoundCount)
	assert.Equal(t, types.EventRoundTimeout, ti.Event)
	assert.Equal(t, 0, to.Len())
}

func TestTimeoutsDropBefore(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	to := NewTimeouts()
	for i := int64(0); i < 5; i++ {
		to.Add(t0.Add(time.Duration(5-i)*time.Second), types.EventRoundTimeout, i)
	}
	to.DropBefore(3)
	require.Equal(t, 2, to.Len())

	ti, ok := to.PopExpired(t0.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, int64(4), ti.RoundCount)
	ti, ok = to.PopExpired(t0.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, int64(3), ti.RoundCount)
}
