package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_PageCount(t *testing.T) {
	doc := Document{Content: "abc"}
	assert.Equal(t, 0, doc.PageCount())

	doc.PageOffsets = []int{10, 20}
	assert.Equal(t, 3, doc.PageCount())
}

func TestDocument_PageAt(t *testing.T) {
	doc := Document{Content: "page one..page two..page three", PageOffsets: []int{10, 20}}

	tests := []struct {
		offset   int
		expected int
	}{
		{0, 1},
		{9, 1},
		{10, 2},
		{19, 2},
		{20, 3},
		{29, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, doc.PageAt(tt.offset), "offset %d", tt.offset)
	}
}

func TestDocument_PageAt_NoPages(t *testing.T) {
	doc := Document{Content: "no pages"}
	assert.Equal(t, 0, doc.PageAt(3))
}

func TestChunk_PageRange(t *testing.T) {
	assert.Equal(t, "", Chunk{}.PageRange())
	assert.Equal(t, "4", Chunk{FirstPage: 4, LastPage: 4}.PageRange())
	assert.Equal(t, "2-5", Chunk{FirstPage: 2, LastPage: 5}.PageRange())
}

func TestChunk_End(t *testing.T) {
	c := Chunk{Offset: 12, Content: "hello"}
	assert.Equal(t, 17, c.End())
}
