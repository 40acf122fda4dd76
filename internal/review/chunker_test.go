package review

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxSize int
		want    []string
	}{
		{name: "empty input", input: "", maxSize: 5, want: []string{}},
		{name: "shorter than size", input: "abc", maxSize: 5, want: []string{"abc"}},
		{name: "exact size", input: "abcde", maxSize: 5, want: []string{"abcde"}},
		{name: "one over", input: "abcdef", maxSize: 5, want: []string{"abcde", "f"}},
		{name: "even split", input: "aabbcc", maxSize: 2, want: []string{"aa", "bb", "cc"}},
		{name: "size one", input: "xyz", maxSize: 1, want: []string{"x", "y", "z"}},
		{name: "multibyte runes", input: "héllo wörld", maxSize: 4, want: []string{"héll", "o wö", "rld"}},
		{name: "emoji", input: "👍👍👍", maxSize: 2, want: []string{"👍👍", "👍"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chunk(tt.input, tt.maxSize)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Chunk(%q, %d) mismatch (-want +got):\n%s", tt.input, tt.maxSize, diff)
			}
		})
	}
}

func TestChunk_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -5000} {
		got, err := Chunk("some code", size)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, ErrInvalidChunkSize), "size %d", size)
	}
}

func TestChunk_PartitionInvariant(t *testing.T) {
	input := strings.Repeat("func main() { fmt.Println(\"ü\") }\n", 400)

	for _, size := range []int{1, 7, 100, 5000, 20000} {
		chunks, err := Chunk(input, size)
		require.NoError(t, err)

		assert.Equal(t, input, strings.Join(chunks, ""), "size %d", size)
		for i, c := range chunks {
			n := utf8.RuneCountInString(c)
			if i < len(chunks)-1 {
				assert.Equal(t, size, n, "chunk %d of size %d", i, size)
			} else {
				assert.True(t, n >= 1 && n <= size, "last chunk has %d runes", n)
			}
		}
	}
}

func TestChunk_Idempotent(t *testing.T) {
	input := strings.Repeat("x", 12000)
	first, err := Chunk(input, DefaultChunkSize)
	require.NoError(t, err)
	second, err := Chunk(input, DefaultChunkSize)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Empty(t, cmp.Diff(first, second))
}
