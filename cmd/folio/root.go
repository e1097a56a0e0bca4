package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eringen/folio"
)

// cli carries state shared by every command once the root pre-run has
// loaded the configuration.
type cli struct {
	configFile string
	logLevel   string

	v   *viper.Viper
	cfg folio.SiteConfig
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "folio",
		Short: "folio - a file-backed portfolio and blog engine",
		Long: `folio serves a portfolio and blog from a directory of frontmatter
posts: home page, blog index, post pages, RSS feed, sitemap and generated
OpenGraph images. It can also export the site as static files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./folio.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("content-dir", "", "directory holding the posts")
	_ = c.v.BindPFlag("contentDir", root.PersistentFlags().Lookup("content-dir"))

	root.AddCommand(
		c.newServeCmd(),
		c.newBuildCmd(),
		c.newPostsCmd(),
		c.newShowCmd(),
		newNewCmd(),
		c.newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := loadConfig(c.v, c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}

// loadConfig layers defaults, the config file and FOLIO_* environment
// variables into a SiteConfig. A missing default config file is not an error.
func loadConfig(v *viper.Viper, path string) (folio.SiteConfig, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("folio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return folio.SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg folio.SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return folio.SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return folio.SiteConfig{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables are picked up
// by Unmarshal even when the config file omits them.
func setDefaults(v *viper.Viper) {
	d := folio.DefaultConfig()
	t := d.Telemetry

	v.SetDefault("name", d.Name)
	v.SetDefault("url", d.URL)
	v.SetDefault("description", d.Description)
	v.SetDefault("author", "")
	v.SetDefault("intro", d.Intro)
	v.SetDefault("githubURL", d.GitHubURL)
	v.SetDefault("sourceURL", d.SourceURL)
	v.SetDefault("ogDefaultTitle", "")
	v.SetDefault("contentDir", d.ContentDir)
	v.SetDefault("contentExt", d.ContentExt)
	v.SetDefault("staticDir", d.StaticDir)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("sessionSecret", "")
	v.SetDefault("cookieSecure", false)
	v.SetDefault("ogRateLimit", d.OGRateLimit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", false)
	v.SetDefault("telemetry.enabled", t.Enabled)
	v.SetDefault("telemetry.databasePath", t.DatabasePath)
	v.SetDefault("telemetry.retentionDays", t.RetentionDays)
	v.SetDefault("telemetry.cleanupInterval", t.CleanupInterval)
	v.SetDefault("telemetry.statsToken", "")
	v.SetDefault("telemetry.proxyHost", "")
	v.SetDefault("telemetry.collectLimit", t.CollectLimit)
}

// newLogger builds a production JSON logger, or a console logger in
// development mode.
func newLogger(lc folio.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	config := zap.NewProductionConfig()
	if lc.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the folio version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "folio %s\n", version)
		},
	}
}
