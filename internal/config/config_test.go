package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearDBEnv removes the DB_* variables for the duration of the test so the
// surrounding environment cannot leak into the parsed config.
func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "defaults",
			want: Config{
				DBHost:     "localhost",
				DBPort:     "5432",
				DBUser:     "lodgepos_user",
				DBPassword: "lodgepos_password",
				DBName:     "lodgepos_db",
				DBSSLMode:  "disable",
			},
		},
		{
			name: "full override",
			env: map[string]string{
				"DB_HOST":     "db.internal",
				"DB_PORT":     "5433",
				"DB_USER":     "pos",
				"DB_PASSWORD": "s3cret",
				"DB_NAME":     "lodge",
				"DB_SSLMODE":  "require",
			},
			want: Config{
				DBHost:     "db.internal",
				DBPort:     "5433",
				DBUser:     "pos",
				DBPassword: "s3cret",
				DBName:     "lodge",
				DBSSLMode:  "require",
			},
		},
		{
			name: "partial override keeps defaults",
			env: map[string]string{
				"DB_HOST":     "10.0.0.5",
				"DB_PASSWORD": "s3cret",
			},
			want: Config{
				DBHost:     "10.0.0.5",
				DBPort:     "5432",
				DBUser:     "lodgepos_user",
				DBPassword: "s3cret",
				DBName:     "lodgepos_db",
				DBSSLMode:  "disable",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearDBEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{
		DBHost:     "10.0.0.5",
		DBPort:     "5433",
		DBUser:     "pos",
		DBPassword: "s3cret",
		DBName:     "lodge",
		DBSSLMode:  "require",
	}
	assert.Equal(t,
		"host=10.0.0.5 port=5433 user=pos password=s3cret dbname=lodge sslmode=require",
		cfg.DSN())
}
