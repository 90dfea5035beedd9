package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisdata/aisup/errors"
)

const mib = int64(1024 * 1024)

func TestPlan(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int64
		partSize  int64
		wantSizes []int64
	}{
		{
			name:      "350 MiB file with 100 MiB parts",
			fileSize:  350 * mib,
			partSize:  100 * mib,
			wantSizes: []int64{100 * mib, 100 * mib, 100 * mib, 50 * mib},
		},
		{
			name:      "exact multiple",
			fileSize:  200 * mib,
			partSize:  100 * mib,
			wantSizes: []int64{100 * mib, 100 * mib},
		},
		{
			name:      "single short part",
			fileSize:  10,
			partSize:  100,
			wantSizes: []int64{10},
		},
		{
			name:      "single exact part",
			fileSize:  100,
			partSize:  100,
			wantSizes: []int64{100},
		},
		{
			name:      "one byte over",
			fileSize:  101,
			partSize:  100,
			wantSizes: []int64{100, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := Plan(tt.fileSize, tt.partSize)
			require.NoError(t, err)
			require.Len(t, parts, len(tt.wantSizes))

			var total int64
			for i, p := range parts {
				assert.Equal(t, int32(i+1), p.Number, "part numbers must be 1-based and contiguous")
				assert.Equal(t, tt.wantSizes[i], p.Size())
				if i > 0 {
					assert.Equal(t, parts[i-1].End, p.Start, "parts must be contiguous")
				}
				total += p.Size()
			}
			assert.Equal(t, int64(0), parts[0].Start)
			assert.Equal(t, tt.fileSize, parts[len(parts)-1].End)
			assert.Equal(t, tt.fileSize, total, "part sizes must sum to the file size")
		})
	}
}

func TestPlan_CoversRangeWithoutGaps(t *testing.T) {
	// A spread of awkward size combinations; the invariants must hold for all.
	sizes := []int64{1, 99, 100, 101, 1024, 4097, 1 << 20, 5<<20 + 3}
	partSizes := []int64{1, 7, 100, 1 << 16}

	for _, fileSize := range sizes {
		for _, partSize := range partSizes {
			parts, err := Plan(fileSize, partSize)
			require.NoError(t, err)

			var covered int64
			for i, p := range parts {
				require.Equal(t, int32(i+1), p.Number)
				require.Equal(t, covered, p.Start)
				require.Greater(t, p.End, p.Start)
				covered = p.End
			}
			require.Equal(t, fileSize, covered, "fileSize=%d partSize=%d", fileSize, partSize)
		}
	}
}

func TestPlan_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		fileSize int64
		partSize int64
	}{
		{"zero file size", 0, 100},
		{"negative file size", -1, 100},
		{"zero part size", 100, 0},
		{"negative part size", 100, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := Plan(tt.fileSize, tt.partSize)
			assert.Nil(t, parts)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}
