package loyalty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/loyalty-engine/loyalty"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"789M", "0000789M"},
		{"1234567A", "1234567A"},
		{"", ""},
		{"   ", ""},
		{" 789m ", "0000789M"},
		{"12345", "0012345"},
		{"123456789Z", "123456789Z"}, // longer runs are not truncated
		{"X1234567L", "X1234567L"},   // NIE-style, left alone
		{"ab-12", "AB-12"},
		{"12AB", "12AB"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, loyalty.NormalizeID(tt.raw))
		})
	}
}

func TestNormalizeID_Idempotent(t *testing.T) {
	inputs := []string{"", "789M", "0000789M", " 1a ", "x", "99999999999", "ñ12", "12 34"}
	for _, s := range inputs {
		once := loyalty.NormalizeID(s)
		assert.Equal(t, once, loyalty.NormalizeID(once), "input %q", s)
	}
}
