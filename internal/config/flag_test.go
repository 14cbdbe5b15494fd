package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags_Overrides(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"test",
		"-a", ":9999",
		"-d", "postgres://u:p@h:5432/db",
		"-s", "flag-secret",
		"-t", "60",
		"-b", "uploads",
	}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, ":9999", c.EndpointAddrHTTP)
	assert.Equal(t, "postgres://u:p@h:5432/db", c.DatabaseDSN)
	assert.Equal(t, "flag-secret", c.SecretKey)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, "uploads", c.S3Bucket)
}

func TestParseFlags_KeepsDefaultsWithoutFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"test"}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, ":4000", c.EndpointAddrHTTP)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
}
