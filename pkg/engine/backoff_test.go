package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"first attempt", time.Second, 0, time.Second},
		{"second attempt doubles", time.Second, 1, 2 * time.Second},
		{"third attempt quadruples", time.Second, 2, 4 * time.Second},
		{"negative attempt clamps to zero", time.Second, -1, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(tt.base, tt.attempt))
		})
	}
}
