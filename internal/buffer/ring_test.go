package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing(t *testing.T) {

	type test struct {
		size  int
		push  []int
		get   []int
		last  int
		empty bool
	}

	tests := map[string]test{
		"empty": {
			size:  3,
			get:   []int{},
			empty: true,
		},
		"partial": {
			size: 3,
			push: []int{1, 2},
			get:  []int{1, 2},
			last: 2,
		},
		"full": {
			size: 3,
			push: []int{1, 2, 3},
			get:  []int{1, 2, 3},
			last: 3,
		},
		"overflow": {
			size: 3,
			push: []int{1, 2, 3, 4, 5, 6, 7},
			get:  []int{5, 6, 7},
			last: 7,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := NewRing[int](tt.size)
			for _, v := range tt.push {
				r.Push(v)
			}
			assert.Equal(t, tt.get, r.Get())
			assert.Equal(t, len(tt.get), r.Size())
			last, ok := r.Last()
			assert.Equal(t, !tt.empty, ok)
			assert.Equal(t, tt.last, last)
		})
	}
}
