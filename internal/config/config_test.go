package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:               "development",
		JWTSecret:         "secure-secret-at-least-32-chars-long",
		DBPassword:        "secure-password",
		DBSSLMode:         "require",
		Port:              "8080",
		Timezone:          "UTC",
		ProgramStart:      "2025-03-10",
		ProgramEnd:        "2025-05-09",
		AvatarMaxUploadMB: 20,
		TeamDeletePolicy:  TeamDeleteReject,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProgramAndPolicy(t *testing.T) {
	t.Run("end before start", func(t *testing.T) {
		c := validConfig()
		c.ProgramEnd = "2025-03-01"
		assert.Error(t, c.Validate())
	})
	t.Run("malformed start", func(t *testing.T) {
		c := validConfig()
		c.ProgramStart = "03/10/2025"
		assert.Error(t, c.Validate())
	})
	t.Run("unknown delete policy", func(t *testing.T) {
		c := validConfig()
		c.TeamDeletePolicy = "cascade"
		assert.Error(t, c.Validate())
	})
	t.Run("unknown timezone", func(t *testing.T) {
		c := validConfig()
		c.Timezone = "Mars/Olympus"
		assert.Error(t, c.Validate())
	})
	t.Run("default production secret", func(t *testing.T) {
		c := validConfig()
		c.Env = "production"
		c.JWTSecret = defaultJWTSecret
		assert.Error(t, c.Validate())
	})
}

func TestConfig_ProgramRange(t *testing.T) {
	c := validConfig()
	start, end, err := c.ProgramRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC), end)
}

func TestConfig_HiddenTeamNames(t *testing.T) {
	c := &Config{HiddenTeams: " Dev Team , ,Staff"}
	assert.Equal(t, []string{"Dev Team", "Staff"}, c.HiddenTeamNames())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("TEAM_DELETE_POLICY")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("TEAM_DELETE_POLICY", " Unassign ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, TeamDeleteUnassign, c.TeamDeletePolicy)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 20, c.AvatarMaxUploadMB)
}
