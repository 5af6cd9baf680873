package topstocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_DetectsCorruption(t *testing.T) {
	setup := func() *TopStocks {
		tops := mustNew(t, 2)
		for id, p := range map[uint64]float64{1: 110, 2: 95, 3: 103} {
			require.NoError(t, tops.OnQuote(id, 100))
			require.NoError(t, tops.OnQuote(id, p))
		}
		require.NoError(t, Verify(tops))
		return tops
	}

	t.Run("threshold", func(t *testing.T) {
		tops := setup()
		tops.tracker.gainers = 1
		assert.ErrorContains(t, Verify(tops), "gainers threshold")
	})

	t.Run("handle invariant", func(t *testing.T) {
		tops := setup()
		ref, _ := tops.store.Lookup(2)
		tops.store.At(ref).rank = NoHandle
		assert.ErrorContains(t, Verify(tops), "ranked=false")
	})

	t.Run("stale key", func(t *testing.T) {
		tops := setup()
		ref, _ := tops.store.Lookup(3)
		stock := tops.store.At(ref)
		tops.index.Rekey(stock.rank, 2000)
		assert.Error(t, Verify(tops))
	})
}
