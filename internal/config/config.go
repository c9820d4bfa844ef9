// Package config resolves runtime settings. Values come from flags, then
// environment variables, then an optional .env file, then defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Commands.
const (
	CommandServe = "serve"
	CommandInit  = "init"
	CommandSeed  = "seed"
)

// Config holds the resolved settings.
type Config struct {
	Command   string
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string
	LogLevel  slog.Level
	CacheTTL  time.Duration
	// LoginRate is the number of login attempts allowed per minute per client.
	LoginRate  int
	LoginBurst int
}

const usage = `Usage: prenos [flags] [serve|init|seed]

Commands:
  serve                   run the web server (default)
  init                    create the database and admin account, then exit
  seed                    load sample locations, catalog and transfers, then exit

Flags:
  -d, -db <path>          SQLite database path (default: prenos.sqlite3, env PRENOS_DB)
  -a, -addr <host:port>   listen address (default: :8080, env PRENOS_ADDR)
  -u, -user <name>        admin username on first run (default: Admin, env PRENOS_ADMIN)
  -l, -log <path>         log file path (default: no file, env PRENOS_LOG)
  -v, -level <level>      log level: debug, info, warn, error (default: info, env LOG_LEVEL)
  -h, -help               show this help and exit

Environment:
  PRENOS_CACHE_TTL        how long a loaded transfer list is reused (default: 30s)
  PRENOS_LOGIN_RATE       login attempts per minute per client (default: 10)
  PRENOS_ENV_FILE         dotenv file to read (default: .env)
`

// source looks keys up in the process environment first, then in values
// read from the dotenv file.
type source struct {
	dotenv map[string]string
}

func newSource() (source, error) {
	path := os.Getenv("PRENOS_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return source{}, nil
	}
	if err != nil {
		return source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return source{dotenv: values}, nil
}

func (s source) get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := s.dotenv[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) (time.Duration, error) {
	v := s.get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func (s source) integer(key string, fallback int) (int, error) {
	v := s.get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}

// ParseLevel parses a log level name. Unknown names yield info and an error.
func ParseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", v)
}

// Load resolves the configuration for the given command-line arguments
// (without the program name). It returns flag.ErrHelp when help was asked for.
func Load(args []string, out io.Writer) (*Config, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}

	cfg := &Config{LoginBurst: 5}
	level := src.get("LOG_LEVEL", "info")

	flags := flag.NewFlagSet("prenos", flag.ContinueOnError)
	flags.SetOutput(out)

	dbDefault := src.get("PRENOS_DB", "prenos.sqlite3")
	flags.StringVar(&cfg.DBPath, "db", dbDefault, "")
	flags.StringVar(&cfg.DBPath, "d", dbDefault, "")

	addrDefault := src.get("PRENOS_ADDR", ":8080")
	flags.StringVar(&cfg.Addr, "addr", addrDefault, "")
	flags.StringVar(&cfg.Addr, "a", addrDefault, "")

	adminDefault := src.get("PRENOS_ADMIN", "Admin")
	flags.StringVar(&cfg.AdminUser, "user", adminDefault, "")
	flags.StringVar(&cfg.AdminUser, "u", adminDefault, "")

	logDefault := src.get("PRENOS_LOG", "")
	flags.StringVar(&cfg.LogPath, "log", logDefault, "")
	flags.StringVar(&cfg.LogPath, "l", logDefault, "")

	flags.StringVar(&level, "level", level, "")
	flags.StringVar(&level, "v", level, "")

	flags.Usage = func() { fmt.Fprint(out, usage) }

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	switch flags.NArg() {
	case 0:
		cfg.Command = CommandServe
	case 1:
		cfg.Command = flags.Arg(0)
		if cfg.Command != CommandServe && cfg.Command != CommandInit && cfg.Command != CommandSeed {
			flags.Usage()
			return nil, fmt.Errorf("unknown command: %s", cfg.Command)
		}
	default:
		flags.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(1))
	}

	if cfg.LogLevel, err = ParseLevel(level); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = src.duration("PRENOS_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LoginRate, err = src.integer("PRENOS_LOGIN_RATE", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}
