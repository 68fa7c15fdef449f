package server_test

import (
	"testing"
	"time"

	"submission-composer/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_CacheTTL(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"Default", 60, time.Minute},
		{"Disabled", 0, 0},
		{"Negative", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{CacheTTLSeconds: tt.seconds}
			assert.Equal(t, tt.want, c.CacheTTL())
		})
	}
}
