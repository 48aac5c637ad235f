package anchor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/internal/ar/sim"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

func newAnchor(t *testing.T, rt *sim.Runtime) ar.Anchor {
	t.Helper()
	a, err := rt.CreateAnchor(geometry.NewPose(geometry.NewVector3(0, 0, 0)))
	require.NoError(t, err)
	return a
}

func TestLedgerInsertAndRemove(t *testing.T) {
	rt := sim.NewRuntime()
	ledger := NewLedger(DefaultCapacity)

	id, evicted := ledger.Insert(newAnchor(t, rt))
	assert.Empty(t, evicted)
	assert.True(t, ledger.Contains(id))
	assert.Equal(t, 1, ledger.Len())

	assert.True(t, ledger.Remove(id))
	assert.False(t, ledger.Contains(id))
	assert.Equal(t, 0, rt.LiveAnchors())

	// Idempotent: second removal neither fails nor detaches again.
	assert.False(t, ledger.Remove(id))
	assert.False(t, ledger.Remove(uuid.New()))
	assert.Equal(t, 0, rt.DoubleDetaches())
}

func TestLedgerEvictsOldestAtCapacity(t *testing.T) {
	rt := sim.NewRuntime()
	ledger := NewLedger(3)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, evicted := ledger.Insert(newAnchor(t, rt))
		require.Empty(t, evicted)
		ids = append(ids, id)
	}

	newest, evicted := ledger.Insert(newAnchor(t, rt))
	require.Equal(t, []uuid.UUID{ids[0]}, evicted)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], newest}, ledger.IDs())
	assert.Equal(t, 3, ledger.Len())
	assert.Equal(t, 3, rt.LiveAnchors())

	anchors := rt.Anchors()
	assert.True(t, anchors[0].Detached())
	assert.False(t, anchors[1].Detached())

	// The evicted ID is gone for good.
	assert.False(t, ledger.Remove(ids[0]))
	assert.Equal(t, 0, rt.DoubleDetaches())
}

func TestLedgerClear(t *testing.T) {
	rt := sim.NewRuntime()
	ledger := NewLedger(DefaultCapacity)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		id, _ := ledger.Insert(newAnchor(t, rt))
		ids = append(ids, id)
	}

	assert.Equal(t, 4, ledger.Clear())
	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, 0, rt.LiveAnchors())

	for _, id := range ids {
		assert.False(t, ledger.Remove(id))
	}
	assert.Equal(t, 0, ledger.Clear())
	assert.Equal(t, 0, rt.DoubleDetaches())
}

func TestLedgerAnchorLookup(t *testing.T) {
	rt := sim.NewRuntime()
	ledger := NewLedger(2)
	a := newAnchor(t, rt)

	id, _ := ledger.Insert(a)
	got, ok := ledger.Anchor(id)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = ledger.Anchor(uuid.New())
	assert.False(t, ok)
}

func TestLedgerCapacityFallback(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewLedger(0).Capacity())
	assert.Equal(t, 4, NewLedger(4).Capacity())
}

func TestLedgerNeverDetachesTwiceUnderChurn(t *testing.T) {
	rt := sim.NewRuntime()
	ledger := NewLedger(DefaultCapacity)

	var ids []uuid.UUID
	for i := 0; i < 50; i++ {
		id, _ := ledger.Insert(newAnchor(t, rt))
		ids = append(ids, id)
		if i%3 == 0 {
			ledger.Remove(ids[i/2])
		}
	}
	ledger.Clear()

	assert.Equal(t, 0, rt.LiveAnchors())
	assert.Equal(t, 50, rt.CreatedAnchors())
	assert.Equal(t, 0, rt.DoubleDetaches())
}
