package envconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port int    `env:"PORT" envDefault:"5432"`
}

type testConfig struct {
	Name     string        `env:"NAME"`
	Debug    bool          `env:"DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
	Tags     []string      `env:"TAGS"`
	DB       nested
	Internal string // no env tag: must be left untouched
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("APP__NAME", "ironlake")
	t.Setenv("APP__DB__HOST", "db.internal")

	cfg := &testConfig{Internal: "untouched"}

	require.NoError(t, Load("APP", cfg))

	assert.Equal(t, "ironlake", cfg.Name)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "untouched", cfg.Internal)
}

func TestLoad_BoolAndSliceFields(t *testing.T) {
	t.Setenv("APP__DEBUG", "true")
	t.Setenv("APP__TAGS", "a, b ,c")

	cfg := &testConfig{}

	require.NoError(t, Load("APP", cfg))

	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
}

func TestLoad_DurationField(t *testing.T) {
	t.Setenv("APP__TIMEOUT", "30s")

	cfg := &testConfig{}

	require.NoError(t, Load("APP", cfg))

	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("APP__DEBUG", "not-a-bool")

	cfg := &testConfig{}

	err := Load("APP", cfg)

	assert.Error(t, err)
}

func TestLoad_RequiresPointerToStruct(t *testing.T) {
	var cfg testConfig

	err := Load("APP", cfg)

	assert.Error(t, err)
}

func TestLoad_NoPrefix(t *testing.T) {
	t.Setenv("NAME", "no-prefix")

	cfg := &testConfig{}

	require.NoError(t, Load("", cfg))

	assert.Equal(t, "no-prefix", cfg.Name)
}
