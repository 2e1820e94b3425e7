package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Grid.Rows)
	require.Equal(t, PolicyOptimistic, cfg.DeletePolicy)
	require.Len(t, cfg.Listings, 1)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvToken, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
base_url = "https://files.example/api"
delete_policy = "refetch"

[grid]
rows = 3
tile_width = 200.0

[[listings]]
name = "Shared"
endpoint = "/files/shared"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://files.example/api", cfg.BaseURL)
	require.Equal(t, PolicyRefetch, cfg.DeletePolicy)
	require.Equal(t, 3, cfg.Grid.Rows)
	require.Equal(t, float32(200), cfg.Grid.TileWidth)
	require.Equal(t, float32(8), cfg.Grid.Gap, "unset keys keep their default")
	require.Equal(t, []Listing{{Name: "Shared", Endpoint: "/files/shared"}}, cfg.Listings)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("base_url = "), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "https://file.example"
	env := map[string]string{
		EnvBaseURL: "https://env.example",
		EnvToken:   "secret",
	}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Equal(t, "https://env.example", cfg.BaseURL)
	require.Equal(t, "secret", cfg.Token)

	cfg.ApplyEnv(noEnv)
	require.Equal(t, "https://env.example", cfg.BaseURL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.ErrorIs(t, cfg.Validate(), ErrNoBaseURL)

	cfg.BaseURL = "https://files.example"
	require.NoError(t, cfg.Validate())

	cfg.DeletePolicy = "both"
	require.ErrorIs(t, cfg.Validate(), ErrDeletePolicy)
	cfg.DeletePolicy = PolicyRefetch

	cfg.Grid.Rows = 0
	require.ErrorIs(t, cfg.Validate(), ErrGridRows)
	cfg.Grid.Rows = 2

	cfg.Grid.TileWidth = -1
	require.ErrorIs(t, cfg.Validate(), ErrGridTileWidth)
	cfg.Grid.TileWidth = 100

	cfg.Listings = nil
	require.ErrorIs(t, cfg.Validate(), ErrNoListings)
}

func TestResolveToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("from-file\n"), 0600))

	cfg := Default()
	tok, err := cfg.ResolveToken()
	require.NoError(t, err)
	require.Empty(t, tok)

	cfg.TokenFile = tokenPath
	tok, err = cfg.ResolveToken()
	require.NoError(t, err)
	require.Equal(t, "from-file", tok)

	cfg.Token = "inline"
	tok, err = cfg.ResolveToken()
	require.NoError(t, err)
	require.Equal(t, "inline", tok)

	cfg.Token = ""
	cfg.TokenFile = filepath.Join(dir, "missing")
	_, err = cfg.ResolveToken()
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvTokenFile, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.BaseURL = "https://files.example"
	cfg.DownloadDir = "/tmp/downloads"
	cfg.Listings = append(cfg.Listings, Listing{Name: "Trash", Endpoint: "/files/trash"})
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
