package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	first := GenerateID(AccountPrefix)
	second := GenerateID(AccountPrefix)

	assert.NotEqual(t, first, second)
	assert.True(t, ValidateAccountID(first))
	assert.True(t, ValidateAccountID(second))
	assert.Less(t, first, second)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "valid transfer", id: "trf-0190a8f2-7c1e-7b3a-9f00-1a2b3c4d5e6f", want: true},
		{name: "wrong prefix", id: "rpl-0190a8f2-7c1e-7b3a-9f00-1a2b3c4d5e6f", want: false},
		{name: "missing separator", id: "trf0190a8f2-7c1e-7b3a-9f00-1a2b3c4d5e6f", want: false},
		{name: "bad uuid", id: "trf-not-a-uuid", want: false},
		{name: "empty", id: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateTransferID(tt.id))
		})
	}
	assert.True(t, ValidateReplenishmentID("rpl-0190a8f2-7c1e-7b3a-9f00-1a2b3c4d5e6f"))
}
