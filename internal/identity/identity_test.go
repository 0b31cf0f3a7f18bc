package identity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableIDGolden(t *testing.T) {
	tests := []struct {
		chunkID string
		want    uint64
	}{
		{"qap_2024_p7_c0", 555897878},
		{"Manual_2023_p1_c0", 1552994827},
		{"doc_p1_c1", 678148358},
		{"", 419175444},
	}
	for _, tt := range tests {
		t.Run(tt.chunkID, func(t *testing.T) {
			assert.Equal(t, tt.want, StableID(tt.chunkID))
		})
	}
}

func TestStableIDRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := StableID(fmt.Sprintf("doc_p%d_c%d", i/10, i%10))
		assert.LessOrEqual(t, id, uint64(0x7FFFFFFF))
	}
}

func TestStableIDDeterministic(t *testing.T) {
	assert.Equal(t, StableID("a_p1_c0"), StableID("a_p1_c0"))
	assert.NotEqual(t, StableID("a_p1_c0"), StableID("a_p1_c1"))
}
