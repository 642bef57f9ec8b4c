package topo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Netshape/api"
)

func TestPairsMapUnordered(t *testing.T) {
	pm := NewPairsMap(nil)
	require.NoError(t, pm.Set("host0", "host1", api.LinkParams{MeanMs: 30}))

	p, ok := pm.Get("host1", "host0")
	require.True(t, ok)
	assert.Equal(t, 30.0, p.MeanMs)

	_, ok = pm.Get("host0", "host2")
	assert.False(t, ok)
}

func TestPairsMapDuplicate(t *testing.T) {
	pm := NewPairsMap(nil)
	require.NoError(t, pm.Set("host0", "host1", api.LinkParams{MeanMs: 30}))
	assert.Error(t, pm.Set("host1", "host0", api.LinkParams{MeanMs: 40}))
	assert.Error(t, pm.Set("host0", "host0", api.LinkParams{}))
}

func TestPairsMapDefault(t *testing.T) {
	pm := NewPairsMap(&api.LinkParams{MeanMs: 50, JitterMs: 4})
	require.NoError(t, pm.Set("host0", "host1", api.LinkParams{MeanMs: 10}))

	p, ok := pm.Get("host0", "host2")
	require.True(t, ok)
	assert.Equal(t, 50.0, p.MeanMs)

	p, ok = pm.Get("host0", "host1")
	require.True(t, ok)
	assert.Equal(t, 10.0, p.MeanMs)
}

func TestPairsMapHalved(t *testing.T) {
	pm := NewPairsMap(&api.LinkParams{MeanMs: 50, JitterMs: 4, RateGbit: 1})
	require.NoError(t, pm.Set("host0", "host1", api.LinkParams{MeanMs: 30, JitterMs: 6}))
	half := pm.Halved()

	p, _ := half.Get("host0", "host1")
	assert.Equal(t, 15.0, p.MeanMs)
	assert.Equal(t, 3.0, p.JitterMs)

	p, _ = half.Get("host0", "host2")
	assert.Equal(t, 25.0, p.MeanMs)
	assert.Equal(t, 2.0, p.JitterMs)
	// rate is not halved, it is not a round-trip figure
	assert.Equal(t, 1.0, p.RateGbit)

	// original untouched
	p, _ = pm.Get("host0", "host1")
	assert.Equal(t, 30.0, p.MeanMs)
}

func TestPairsMapFunc(t *testing.T) {
	pm := NewPairsMap(nil)
	require.NoError(t, pm.Set("host0", "host1", api.LinkParams{MeanMs: 30}))
	f := pm.Func()

	p, err := f("host1", "host0")
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.MeanMs)

	_, err = f("host0", "host2")
	assert.Error(t, err)
}
