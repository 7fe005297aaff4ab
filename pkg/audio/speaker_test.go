package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBlocks(q *frameQueue, samples []int16) [][]int16 {
	var blocks [][]int16
	_ = q.push(samples, func(block []int16) error {
		blocks = append(blocks, append([]int16(nil), block...))
		return nil
	})
	return blocks
}

func TestFrameQueueCarriesTailAcrossPushes(t *testing.T) {
	q := &frameQueue{size: 4}

	// 6 samples: one full block out, 2 carried.
	blocks := collectBlocks(q, []int16{1, 2, 3, 4, 5, 6})
	require.Len(t, blocks, 1)
	assert.Equal(t, []int16{1, 2, 3, 4}, blocks[0])
	assert.Equal(t, 2, q.buffered())

	// The next push completes the carried block with no padding between
	// the two chunks.
	blocks = collectBlocks(q, []int16{7, 8, 9, 10, 11, 12})
	require.Len(t, blocks, 2)
	assert.Equal(t, []int16{5, 6, 7, 8}, blocks[0])
	assert.Equal(t, []int16{9, 10, 11, 12}, blocks[1])
	assert.Equal(t, 0, q.buffered())
}

func TestFrameQueueEmitsNothingForShortPush(t *testing.T) {
	q := &frameQueue{size: 8}

	blocks := collectBlocks(q, []int16{1, 2, 3})
	assert.Empty(t, blocks)
	assert.Equal(t, 3, q.buffered())
}

func TestFrameQueueDrainPadsTail(t *testing.T) {
	q := &frameQueue{size: 4}
	_ = q.push([]int16{1, 2, 3, 4, 5}, func([]int16) error { return nil })

	tail := q.drainPadded()
	assert.Equal(t, []int16{5, 0, 0, 0}, tail)
	assert.Equal(t, 0, q.buffered())
	assert.Nil(t, q.drainPadded())
}

func TestFrameQueueResetDropsCarry(t *testing.T) {
	q := &frameQueue{size: 4}
	_ = q.push([]int16{1, 2, 3}, func([]int16) error { return nil })
	require.Equal(t, 3, q.buffered())

	q.reset()
	assert.Equal(t, 0, q.buffered())

	// Samples after a reset start a clean block.
	blocks := collectBlocks(q, []int16{9, 9, 9, 9})
	require.Len(t, blocks, 1)
	assert.Equal(t, []int16{9, 9, 9, 9}, blocks[0])
}
