package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SortsPackAscending(t *testing.T) {
	c, err := NewClient(1, time.Unix(0, 0), 30, 5, 12, 5)
	require.NoError(t, err)

	var vols []float64
	var idx []int
	for _, f := range c.Files {
		vols = append(vols, f.Volume)
		idx = append(idx, f.Index)
	}
	assert.Equal(t, []float64{5, 5, 12, 30}, vols)
	assert.Equal(t, []int{1, 3, 2, 0}, idx, "equal volumes keep generation order")
	assert.Equal(t, 5.0, c.SmallestVolume())
	assert.Equal(t, c.ArrivalTime, c.FirstArrival)
}

func TestNewClient_InvalidPack(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
	}{
		{"empty", nil},
		{"zero volume", []float64{1, 0}},
		{"negative volume", []float64{-4}},
		{"NaN volume", []float64{math.NaN()}},
		{"infinite volume", []float64{math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(1, time.Unix(0, 0), tt.volumes...)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestClient_TakeSmallestAndPutBack(t *testing.T) {
	c, err := NewClient(7, time.Unix(0, 0), 9, 2, 4)
	require.NoError(t, err)

	f := c.TakeSmallest()
	assert.Equal(t, 2.0, f.Volume)
	assert.Equal(t, 2, c.Remaining())
	assert.Equal(t, 1, c.Sent)

	c.PutBack(f)
	assert.Equal(t, 3, c.Remaining())
	assert.Equal(t, 0, c.Sent)
	assert.Equal(t, 2.0, c.SmallestVolume(), "returned file goes back to the head")
}

func TestClient_TakeSmallest_EmptyPanics(t *testing.T) {
	c := &Client{ID: 3}
	assert.Panics(t, func() { c.TakeSmallest() })
	_, ok := c.Smallest()
	assert.False(t, ok)
	assert.Equal(t, 0.0, c.SmallestVolume())
}
