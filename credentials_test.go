package sqlexec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Addr(t *testing.T) {
	require.Equal(t, "localhost:3306", Credentials{Host: "localhost"}.Addr())
	require.Equal(t, "localhost:55000", Credentials{Host: "localhost", Port: 55000}.Addr())
	require.Equal(t, "db.example.com:3307", Credentials{Host: "db.example.com:3307", Port: 55000}.Addr())
	require.Equal(t, "[::1]:3306", Credentials{Host: "::1"}.Addr())
}

func TestCredentials_Dsn(t *testing.T) {
	creds := Credentials{Host: "localhost", Port: 55000, Username: "root", Password: "p@ss:word", Database: "test_db"}
	dsn := creds.Dsn()
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "tcp", cfg.Net)
	require.Equal(t, "localhost:55000", cfg.Addr)
	require.Equal(t, "root", cfg.User)
	require.Equal(t, "p@ss:word", cfg.Passwd)
	require.Equal(t, "test_db", cfg.DBName)
	require.True(t, cfg.ParseTime)
}

func TestLoadCredentials(t *testing.T) {
	for _, name := range []string{"HOST", "PORT", "USERNAME", "PASSWORD", "DATABASE"} {
		t.Setenv(EnvPrefix+"_"+name, "")
		_ = os.Unsetenv(EnvPrefix + "_" + name)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
host = "db.example.com"
port = 3307
username = "app"
password = "from-file"
database = "app_db"
`), 0o600)
	require.NoError(t, err)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, Credentials{Host: "db.example.com", Port: 3307, Username: "app", Password: "from-file", Database: "app_db"}, creds)

	t.Setenv("SQLEXEC_PASSWORD", "from-env")
	t.Setenv("SQLEXEC_PORT", "3308")
	creds, err = LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", creds.Password)
	require.Equal(t, 3308, creds.Port)
	require.Equal(t, "db.example.com", creds.Host)

	creds, err = LoadCredentials("")
	require.NoError(t, err)
	require.Equal(t, Credentials{Port: 3308, Password: "from-env"}, creds)
}

func TestLoadCredentials_Errors(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`host = `), 0o600))
	_, err = LoadCredentials(path)
	require.Error(t, err)

	t.Setenv("SQLEXEC_PORT", "not-a-number")
	_, err = LoadCredentials("")
	require.Error(t, err)
}
