package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
counties:
  - ANDREWS
  - MIDLAND
date_range:
  from: "01/01/2024"
  to: "01/31/2024"
scrape:
  navigation_interval_ms: 1500
service:
  data_dir: /var/lib/permits
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, rrc.SearchConfig{
		Counties:  []string{"ANDREWS", "MIDLAND"},
		DateRange: rrc.DateRange{From: "01/01/2024", To: "01/31/2024"},
	}, cfg.SearchConfig())
	require.Equal(t, 8000, cfg.Service.Port)
	require.Equal(t, "/var/lib/permits/jobs.db", cfg.Service.Database)
	require.Equal(t, "/var/lib/permits/plat_files", cfg.PlatRoot())
	require.True(t, cfg.ChromeOptions().Headless)

	opts := cfg.RetrieverOptions()
	require.Equal(t, 60*time.Second, opts.Timeout)
	require.Equal(t, 1500*time.Millisecond, opts.NavigationInterval)
}

func TestValidate(t *testing.T) {
	table := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{
			name: "valid",
			cfg: Config{
				Counties:  []string{"ECTOR"},
				DateRange: rrc.DateRange{From: "01/01/2024", To: "01/02/2024"},
			},
			valid: true,
		},
		{
			name: "no counties",
			cfg: Config{
				DateRange: rrc.DateRange{From: "01/01/2024", To: "01/02/2024"},
			},
		},
		{
			name: "missing to",
			cfg: Config{
				Counties:  []string{"ECTOR"},
				DateRange: rrc.DateRange{From: "01/01/2024"},
			},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}
