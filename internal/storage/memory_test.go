package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		rec, err := store.RecordConversion(ctx, ConversionRecord{
			FromToken:   fmt.Sprintf("0xfrom%d", i),
			ToToken:     "0xto",
			BlockNumber: uint64(1000 + i),
			Rate:        float64(i),
			PathLength:  2,
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		require.False(t, rec.CreatedAt.IsZero())
	}

	records, err := store.RecentConversions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	require.Equal(t, "0xfrom4", records[0].FromToken)
	require.Equal(t, "0xfrom2", records[2].FromToken)

	all, err := store.RecentConversions(ctx, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
}
