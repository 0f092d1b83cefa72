package cli

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lumina-ai/recall-go/pkg/core"
)

// config carries the flags shared by every subcommand.
type config struct {
	configPath string
	dbPath     string
	logLevel   string
}

func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a JSON or YAML configuration file",
			Sources:     cli.EnvVars("RECALL_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "SQLite database path (overrides configured storage)",
			Sources:     cli.EnvVars("RECALL_DB"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("RECALL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// newClient builds a client from the flag set: an explicit config file wins,
// then the --db shortcut, then environment variables.
func (c *config) newClient() (*core.Client, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg)
}

// newBareClient builds a client without running pending migrations, for the
// migrate subcommands that manage the schema explicitly.
func (c *config) newBareClient() (*core.Client, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	cfg.AutoMigrate = false
	return core.NewClient(cfg)
}

func (c *config) load() (*core.Config, error) {
	var cfg *core.Config
	var err error
	switch {
	case c.configPath != "":
		if strings.HasSuffix(c.configPath, ".json") {
			cfg, err = core.LoadConfigFromJSON(c.configPath)
		} else {
			cfg, err = core.LoadConfigFromYAML(c.configPath)
		}
		if err != nil {
			return nil, err
		}
	case c.dbPath != "":
		cfg = core.DefaultConfig(c.dbPath)
	default:
		cfg, err = core.LoadConfigFromEnv()
		if err != nil {
			return nil, err
		}
	}

	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	return cfg, nil
}
