package differ

import (
	"fmt"
	"testing"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// BenchmarkDiff_1000Chunks exercises the target file size: a 1,000-chunk
// diff must complete in well under 100ms, which rules out pairwise matching.
func BenchmarkDiff_1000Chunks(b *testing.B) {
	old := make([]*types.CodeChunk, 0, 1000)
	new := make([]*types.CodeChunk, 0, 1000)

	for i := 0; i < 1000; i++ {
		name := fmt.Sprintf("fn%d", i)
		old = append(old, chunk(name, []string{name}, types.ChunkFunction, fmt.Sprintf("body %d", i)))

		// every tenth chunk is modified, every hundredth renamed
		code := fmt.Sprintf("body %d", i)
		newName := name
		if i%10 == 0 {
			code = fmt.Sprintf("body %d changed", i)
		}
		if i%100 == 0 {
			newName = fmt.Sprintf("fn%d_renamed", i)
		}
		new = append(new, chunk(newName, []string{newName}, types.ChunkFunction, code))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Diff(old, new)
	}
}
