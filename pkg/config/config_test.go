package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops/pkg/config"
)

func envOf(m map[string]string) config.Getenv {
	return func(key string) string { return m[key] }
}

func TestBackendValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BackendConfig
		missing []string
	}{
		{
			name: "complete",
			cfg:  config.BackendConfig{URL: "https://x.supabase.co", ServiceKey: "k"},
		},
		{
			name:    "missing_url",
			cfg:     config.BackendConfig{ServiceKey: "k"},
			missing: []string{"SUPABASE_URL"},
		},
		{
			name:    "missing_key",
			cfg:     config.BackendConfig{URL: "https://x.supabase.co"},
			missing: []string{"SUPABASE_SERVICE_ROLE_KEY"},
		},
		{
			name:    "blank_both",
			cfg:     config.BackendConfig{URL: "  ", ServiceKey: ""},
			missing: []string{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.missing == nil {
				assert.NoError(t, err)
				return
			}
			var missingErr *config.MissingError
			require.True(t, errors.As(err, &missingErr))
			assert.Equal(t, "backend", missingErr.Section)
			assert.Equal(t, tc.missing, missingErr.Keys)
		})
	}
}

func TestRelayValidate(t *testing.T) {
	err := config.RelayConfig{Endpoint: "https://relay"}.Validate()
	assert.EqualError(t, err, "missing relay configuration: WEB3FORMS_ACCESS_KEY")

	assert.NoError(t, config.RelayConfig{
		Endpoint: "https://relay", AccessKey: "key",
	}.Validate())
}

func TestOverrideBackendFromEnv(t *testing.T) {
	t.Run("primary", func(t *testing.T) {
		var cfg config.BackendConfig
		config.OverrideBackendFromEnv(&cfg, envOf(map[string]string{
			"SUPABASE_URL":              "https://a.supabase.co",
			"VITE_SUPABASE_URL":         "https://b.supabase.co",
			"SUPABASE_SERVICE_ROLE_KEY": "role",
		}))
		assert.Equal(t, "https://a.supabase.co", cfg.URL)
		assert.Equal(t, "role", cfg.ServiceKey)
	})

	t.Run("vite_fallback", func(t *testing.T) {
		cfg := config.BackendConfig{URL: "from-file"}
		config.OverrideBackendFromEnv(&cfg, envOf(map[string]string{
			"VITE_SUPABASE_URL": "https://b.supabase.co",
		}))
		assert.Equal(t, "https://b.supabase.co", cfg.URL)
	})

	t.Run("keeps_file_values", func(t *testing.T) {
		cfg := config.BackendConfig{URL: "from-file", ServiceKey: "file-key"}
		config.OverrideBackendFromEnv(&cfg, envOf(nil))
		assert.Equal(t, "from-file", cfg.URL)
		assert.Equal(t, "file-key", cfg.ServiceKey)
	})
}

func TestOverrideDBFromEnv(t *testing.T) {
	cfg := config.DBConfig{Port: 5432}
	config.OverrideDBFromEnv(&cfg, envOf(map[string]string{
		"DB_PORT":      "not-a-number",
		"DATABASE_URL": "postgres://u:p@h/db",
	}))
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "postgres://u:p@h/db", cfg.DSN)
}
