package configs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuslib/library-catalogue-go/configs"
)

func Test_Load_AppliesDefaults(t *testing.T) {
	// arrange
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/library?sslmode=disable")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	// act
	cfg, err := configs.Load()

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "3003", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/library?sslmode=disable", cfg.DatabaseURL)
}

func Test_Load_HonorsExplicitValues(t *testing.T) {
	// arrange
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/library?sslmode=disable")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	// act
	cfg, err := configs.Load()

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func Test_Load_Fails_WithoutDatabaseURL(t *testing.T) {
	// arrange
	t.Setenv("DATABASE_URL", "")

	// act
	_, err := configs.Load()

	// assert
	assert.Error(t, err)
}

func Test_PGXPoolConfig_AppliesPoolTuning(t *testing.T) {
	// arrange
	cfg := configs.Config{DatabaseURL: "postgres://localhost:5432/library?sslmode=disable"}

	// act
	poolCfg, err := cfg.PGXPoolConfig()

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int32(50), poolCfg.MaxConns)
	assert.Equal(t, int32(10), poolCfg.MinConns)
}

func Test_PGXPoolConfig_Fails_OnMalformedURL(t *testing.T) {
	// arrange
	cfg := configs.Config{DatabaseURL: "::not-a-url::"}

	// act
	_, err := cfg.PGXPoolConfig()

	// assert
	assert.Error(t, err)
}
