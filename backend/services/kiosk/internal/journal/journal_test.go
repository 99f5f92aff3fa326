package journal

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeepsNewestFirstWithinCapacity(t *testing.T) {
	j := NewMemory(3)
	for i := 0; i < 5; i++ {
		j.Record(Entry{Kind: KindCardDetected, Message: fmt.Sprintf("entry %d", i)})
	}

	entries, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 4", entries[0].Message)
	assert.Equal(t, "entry 2", entries[2].Message)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].At.IsZero())

	limited, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "entry 4", limited[0].Message)
}
