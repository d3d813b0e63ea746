package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMobile(t *testing.T) {
	tests := []struct {
		mobile string
		valid  bool
	}{
		{"9876543210", true},
		{"6000000000", true},
		{"5876543210", false},
		{"987654321", false},
		{"98765432101", false},
		{"98765-43210", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.mobile, func(t *testing.T) {
			err := validateMobile(tt.mobile)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, CodeValidationFailed, CodeOf(err))
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"team_name":            "team_name is required",
		"leader_mobile_number": "leader mobile number must be 10 digits starting with 6-9",
	}}
	assert.Equal(t, "leader mobile number must be 10 digits starting with 6-9; team_name is required", err.Error())

	wrapped := fmt.Errorf("create: %w", err)
	var svcErr *Error
	require.True(t, errors.As(wrapped, &svcErr))
	assert.Equal(t, CodeValidationFailed, svcErr.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeTeamFull, CodeOf(ErrTeamFull))
	assert.Equal(t, CodeTeamFull, CodeOf(fmt.Errorf("join: %w", ErrTeamFull)))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("connection refused")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://sports.example/join/ABCD2345", JoinURL("https://sports.example/", "ABCD2345"))
	assert.Equal(t, "https://sports.example/join/ABCD2345", JoinURL("https://sports.example", "ABCD2345"))
}
