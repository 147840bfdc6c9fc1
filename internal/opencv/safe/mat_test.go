package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type countingTracker struct {
	live  map[uint64]int64
	freed int
}

func (c *countingTracker) TrackAllocation(id uint64, size int64, tag string) {
	if c.live == nil {
		c.live = make(map[uint64]int64)
	}
	c.live[id] = size
}

func (c *countingTracker) TrackDeallocation(id uint64, tag string) {
	delete(c.live, id)
	c.freed++
}

func TestNewZerosIsBlack(t *testing.T) {
	m, err := NewZeros(4, 6, gocv.MatTypeCV8UC1, nil, "zeros")
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 4, m.Rows())
	assert.Equal(t, 6, m.Cols())
	assert.Equal(t, 1, m.Channels())
	for r := 0; r < 4; r++ {
		for c := 0; c < 6; c++ {
			v, err := m.GetUCharAt(r, c)
			require.NoError(t, err)
			assert.Zero(t, v)
		}
	}
}

func TestCloseIsIdempotentAndTracked(t *testing.T) {
	tracker := &countingTracker{}
	m, err := NewZeros(10, 10, gocv.MatTypeCV8UC3, tracker, "canvas")
	require.NoError(t, err)

	assert.Equal(t, int64(300), tracker.live[m.ID()])

	m.Close()
	m.Close()

	assert.False(t, m.IsValid())
	assert.True(t, m.Empty())
	assert.Zero(t, m.Rows())
	assert.Empty(t, tracker.live)
	assert.Equal(t, 1, tracker.freed)
}

func TestCloneKeepsTracker(t *testing.T) {
	tracker := &countingTracker{}
	m, err := NewZeros(3, 3, gocv.MatTypeCV8UC1, tracker, "src")
	require.NoError(t, err)
	defer m.Close()

	c, err := m.Clone()
	require.NoError(t, err)
	defer c.Close()

	assert.NotEqual(t, m.ID(), c.ID())
	assert.Equal(t, "src_clone", c.Tag())
	assert.Len(t, tracker.live, 2)
}

func TestWrapRejectsEmpty(t *testing.T) {
	_, err := Wrap(gocv.NewMat(), nil, "empty")
	assert.Error(t, err)
}

func TestInvalidDimensions(t *testing.T) {
	_, err := NewMatWithTracker(0, 10, gocv.MatTypeCV8UC1, nil, "zero")
	assert.Error(t, err)
}

func TestGetUCharAtOutOfBounds(t *testing.T) {
	m, err := NewZeros(2, 2, gocv.MatTypeCV8UC1, nil, "")
	require.NoError(t, err)
	defer m.Close()

	_, err = m.GetUCharAt(2, 0)
	assert.Error(t, err)
}

func TestValidateGray(t *testing.T) {
	gray, err := NewZeros(2, 2, gocv.MatTypeCV8UC1, nil, "")
	require.NoError(t, err)
	defer gray.Close()
	color, err := NewZeros(2, 2, gocv.MatTypeCV8UC3, nil, "")
	require.NoError(t, err)
	defer color.Close()

	assert.NoError(t, ValidateGray(gray, "test"))
	assert.Error(t, ValidateGray(color, "test"))
	assert.Error(t, ValidateGray(nil, "test"))
}
