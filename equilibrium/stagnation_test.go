package equilibrium

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tests := []struct {
		name    string
		triples [][3]float64
		want    bool
	}{
		{
			name:    "five high tension low coherence",
			triples: [][3]float64{{0.8, 0.2, 0.9}, {0.9, 0.1, 0.9}, {0.75, 0.25, 0.9}, {0.95, 0.0, 0.9}, {0.71, 0.29, 0.9}},
			want:    true,
		},
		{
			name:    "streak broken by tension exactly 0.7",
			triples: [][3]float64{{0.8, 0.2, 0.9}, {0.9, 0.1, 0.9}, {0.75, 0.25, 0.9}, {0.95, 0.0, 0.9}, {0.7, 0.2, 0.9}},
			want:    false,
		},
		{
			name:    "low clarity instead of coherence",
			triples: [][3]float64{{0.8, 0.9, 0.1}, {0.8, 0.2, 0.1}, {0.8, 0.9, 0.1}, {0.8, 0.9, 0.1}, {0.8, 0.9, 0.1}},
			want:    true,
		},
		{
			name:    "neither all low coherence nor all low clarity",
			triples: [][3]float64{{0.8, 0.9, 0.1}, {0.8, 0.2, 0.9}, {0.8, 0.1, 0.1}, {0.8, 0.1, 0.1}, {0.8, 0.1, 0.1}},
			want:    false,
		},
		{
			name:    "window not full",
			triples: [][3]float64{{0.8, 0.2, 0.2}, {0.8, 0.2, 0.2}, {0.8, 0.2, 0.2}, {0.8, 0.2, 0.2}},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(DefaultConfig())
			var got bool
			for _, x := range tt.triples {
				got = tr.Observe(x[0], x[1], x[2])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracker_SlidingWindow(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.Observe(0.1, 0.9, 0.9) // calm tick, will slide out
	for i := 0; i < 4; i++ {
		assert.False(t, tr.Observe(0.9, 0.1, 0.1))
	}
	assert.True(t, tr.Observe(0.9, 0.1, 0.1))
	assert.Equal(t, 5, tr.Len())
}
