package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quickclicks/board/config"
)

func TestRegistrationFailureBanDue(t *testing.T) {
	config.SetForTesting(config.AppConfig{
		JWTSecret:                "s",
		RegisterFailedMaxPerHour: 3,
	})

	assert.False(t, RegistrationFailureBanDue(0))
	assert.False(t, RegistrationFailureBanDue(2))
	assert.True(t, RegistrationFailureBanDue(3))
	assert.True(t, RegistrationFailureBanDue(7))
}

func TestRegistrationFailureBanDueFloorsThresholdAtOne(t *testing.T) {
	config.SetForTesting(config.AppConfig{
		JWTSecret:                "s",
		RegisterFailedMaxPerHour: -5,
	})

	// A zero or negative limit still bans after the first failure
	// instead of never banning.
	assert.False(t, RegistrationFailureBanDue(0))
	assert.True(t, RegistrationFailureBanDue(1))
}
