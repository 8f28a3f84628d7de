package sqlexec

import (
	"net"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/xerrors"
)

// DefaultPort is the port used when neither Credentials.Host nor Credentials.Port specify one
const DefaultPort = 3306

// EnvPrefix is the prefix of the environment variables read by LoadCredentials (e.g. SQLEXEC_HOST)
const EnvPrefix = "SQLEXEC"

// Credentials identifies a database and the account used to reach it
type Credentials struct {
	// Host is the server host name, optionally with ":port"
	Host     string `toml:"host" envconfig:"HOST"`
	Port     int    `toml:"port" envconfig:"PORT"`
	Username string `toml:"username" envconfig:"USERNAME"`
	Password string `toml:"password" envconfig:"PASSWORD"`
	// Database is the database (schema) name
	Database string `toml:"database" envconfig:"DATABASE"`
}

// Addr returns the host:port network address
func (c Credentials) Addr() string {
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Dsn returns the MySQL data source name for the credentials
func (c Credentials) Dsn() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = c.Addr()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.DBName = c.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// LoadCredentials reads credentials from the TOML file at path (if path is not empty) and then
// overlays any SQLEXEC_* environment variables
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	if path != "" {
		if _, err := toml.DecodeFile(path, &creds); err != nil {
			return Credentials{}, xerrors.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &creds); err != nil {
		return Credentials{}, xerrors.Errorf("reading environment: %w", err)
	}
	return creds, nil
}
