package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID int `json:"id"`
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectedIDs   []int
		expectedCount int
		expectedErr   error
	}{
		{"bare array", `[{"id":1},{"id":2}]`, []int{1, 2}, 2, nil},
		{"empty array", `[]`, []int{}, 0, nil},
		{"envelope", `{"count":40,"next":"?page=2","previous":null,"results":[{"id":3}]}`, []int{3}, 40, nil},
		{"envelope without count", `{"results":[{"id":4},{"id":5}]}`, []int{4, 5}, 2, nil},
		{"object without results", `{"detail":"nope"}`, nil, 0, ErrUnrecognizedShape},
		{"results not a list", `{"results":{"id":1}}`, nil, 0, ErrUnrecognizedShape},
		{"scalar", `"hello"`, nil, 0, ErrUnrecognizedShape},
		{"empty body", ``, nil, 0, ErrUnrecognizedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, count, err := DecodeList[row]([]byte(tt.body))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			ids := make([]int, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
			assert.Equal(t, tt.expectedCount, count)
		})
	}
}
