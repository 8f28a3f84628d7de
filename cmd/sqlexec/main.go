package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	logging "github.com/ipfs/go-log/v2"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/go-andiamo/sqlexec"
)

var log = logging.Logger("sqlexec-cli")

var connectionFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "path to a TOML file with host, port, username, password and database",
		EnvVars: []string{"SQLEXEC_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "host",
		Usage: "database host (host or host:port)",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "database port",
	},
	&cli.StringFlag{
		Name:  "user",
		Usage: "database username",
	},
	&cli.StringFlag{
		Name:  "password",
		Usage: "database password",
	},
	&cli.StringFlag{
		Name:  "database",
		Usage: "database name",
	},
	&cli.BoolFlag{
		Name:  "decimals",
		Usage: "read float/decimal columns as exact decimals",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Value: "warn",
	},
}

var insertCmd = &cli.Command{
	Name:      "insert",
	Usage:     "execute an INSERT and print the generated id",
	ArgsUsage: "SQL [PARAM...]",
	Action: func(cctx *cli.Context) error {
		e, query, params, err := setup(cctx)
		if err != nil {
			return err
		}
		id, err := e.Insert(cctx.Context, query, params)
		if err != nil {
			return describe(err)
		}
		_, err = fmt.Fprintln(cctx.App.Writer, id)
		return err
	},
}

var execCmd = &cli.Command{
	Name:      "exec",
	Usage:     "execute an UPDATE/DELETE (or any statement) and print the number of affected rows",
	ArgsUsage: "SQL [PARAM...]",
	Action: func(cctx *cli.Context) error {
		e, query, params, err := setup(cctx)
		if err != nil {
			return err
		}
		n, err := e.Exec(cctx.Context, query, params)
		if err != nil {
			return describe(err)
		}
		_, err = fmt.Fprintln(cctx.App.Writer, n)
		return err
	},
}

var selectCmd = &cli.Command{
	Name:      "select",
	Usage:     "execute a query and print the rows as JSON",
	ArgsUsage: "SQL [PARAM...]",
	Action: func(cctx *cli.Context) error {
		e, query, params, err := setup(cctx)
		if err != nil {
			return err
		}
		rows, err := e.Select(cctx.Context, query, params)
		if err != nil {
			return describe(err)
		}
		return writeRows(cctx.App.Writer, rows)
	},
}

func main() {
	app := &cli.App{
		Name:     "sqlexec",
		Usage:    "execute parameterized SQL against a MySQL database",
		Flags:    connectionFlags,
		Commands: []*cli.Command{insertCmd, execCmd, selectCmd},
		Before: func(cctx *cli.Context) error {
			return logging.SetLogLevel("*", cctx.String("log-level"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

func setup(cctx *cli.Context) (sqlexec.Executor, string, []any, error) {
	if cctx.NArg() < 1 {
		return nil, "", nil, xerrors.New("expected SQL argument")
	}
	creds, err := credentials(cctx)
	if err != nil {
		return nil, "", nil, err
	}
	e, err := sqlexec.NewExecutor(sqlexec.NewConnections().For(creds), sqlexec.UseDecimals(cctx.Bool("decimals")))
	if err != nil {
		return nil, "", nil, err
	}
	args := cctx.Args().Slice()
	return e, args[0], parseParams(args[1:]), nil
}

// credentials are read from the config file, then the environment, then flags
func credentials(cctx *cli.Context) (sqlexec.Credentials, error) {
	creds, err := sqlexec.LoadCredentials(cctx.String("config"))
	if err != nil {
		return creds, err
	}
	if cctx.IsSet("host") {
		creds.Host = cctx.String("host")
	}
	if cctx.IsSet("port") {
		creds.Port = cctx.Int("port")
	}
	if cctx.IsSet("user") {
		creds.Username = cctx.String("user")
	}
	if cctx.IsSet("password") {
		creds.Password = cctx.String("password")
	}
	if cctx.IsSet("database") {
		creds.Database = cctx.String("database")
	}
	if creds.Host == "" {
		return creds, xerrors.New("no database host configured")
	}
	return creds, nil
}

// parseParams gives command line params the most specific type they parse as - integer, then float, then text
func parseParams(args []string) []any {
	result := make([]any, len(args))
	for i, arg := range args {
		if iv, err := strconv.ParseInt(arg, 10, 64); err == nil {
			result[i] = iv
		} else if fv, err := strconv.ParseFloat(arg, 64); err == nil {
			result[i] = fv
		} else {
			result[i] = arg
		}
	}
	return result
}

func describe(err error) error {
	var nuErr *sqlexec.UniquenessError
	if errors.As(err, &nuErr) {
		return cli.Exit("duplicate value: "+err.Error(), 2)
	}
	return err
}

func writeRows(w io.Writer, rows []sqlexec.Row) error {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := row.Map()
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				m[k] = string(b)
			}
		}
		out[i] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
