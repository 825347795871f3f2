package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		in, want PageRequest
	}{
		{PageRequest{}, PageRequest{Limit: 20}},
		{PageRequest{Limit: 5, Offset: 10}, PageRequest{Limit: 5, Offset: 10}},
		{PageRequest{Limit: 500, Offset: -3}, PageRequest{Limit: MaxPageLimit}},
	}
	for _, tt := range tests {
		got := tt.in
		got.Normalize()
		assert.Equal(t, tt.want, got)
	}
}
