package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// chunkBuilder is the fluent withX builder pattern adapted from the
// teacher's vm_test.go, for assembling Chunks without hand-indexing byte
// offsets everywhere. No test in this package currently calls it.
type chunkBuilder struct {
	chunk *Chunk
}

func newChunkBuilder() *chunkBuilder { return &chunkBuilder{chunk: &Chunk{}} }

func (b *chunkBuilder) withByte(v byte, line int) *chunkBuilder {
	b.chunk.Write(v, line)
	return b
}

func (b *chunkBuilder) withOp(op OpCode, line int) *chunkBuilder {
	return b.withByte(byte(op), line)
}

func (b *chunkBuilder) withConstant(v Value, line int) *chunkBuilder {
	idx := b.chunk.AddConstant(v)
	return b.withOp(OpConstant, line).withByte(byte(idx), line)
}

func (b *chunkBuilder) build() *Chunk { return b.chunk }

func TestChunkWriteLineRLE(t *testing.T) {
	c := &Chunk{}
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpTrue), 1)
	c.Write(byte(OpPop), 2)
	c.Write(byte(OpReturn), 2)

	assert.Equal(t, []lineRun{{Line: 1, Count: 2}, {Line: 2, Count: 2}}, c.lines)

	sum := 0
	for _, run := range c.lines {
		sum += run.Count
	}
	assert.Equal(t, len(c.Code), sum, "sum of line-run counts must equal code length")
}

func TestChunkGetLine(t *testing.T) {
	c := &Chunk{}
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpTrue), 1)
	c.Write(byte(OpPop), 5)

	assert.Equal(t, 1, c.GetLine(0))
	assert.Equal(t, 1, c.GetLine(1))
	assert.Equal(t, 5, c.GetLine(2))
}

func TestChunkAddConstant(t *testing.T) {
	c := &Chunk{}
	i0 := c.AddConstant(NumberValue(1))
	i1 := c.AddConstant(NumberValue(2))
	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, []Value{NumberValue(1), NumberValue(2)}, c.Constants)
}
