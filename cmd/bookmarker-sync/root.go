package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/browser"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/settings"
)

const (
	envPrefix = "BOOKMARKER_SYNC"

	keyBookmarksFile = "BOOKMARKS_FILE"
	keyFormat        = "FORMAT"
	keySettings      = "SETTINGS"
	keyTimeout       = "TIMEOUT"
	keyVerbose       = "VERBOSE"

	defaultTimeout = 30 * time.Second
)

type app struct {
	v         *viper.Viper
	logger    *zap.SugaredLogger
	store     *settings.Store
	selection *settings.Selection
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "bookmarker-sync",
		Short:         "Sync selected browser bookmark folders to a bookmarker server",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("bookmarks", "b", "", "browser bookmarks file (Chromium Bookmarks or Netscape HTML export)")
	flags.String("format", "", "bookmarks file format: chrome or netscape (default: by extension)")
	flags.String("settings", "", "settings file (default: <user config dir>/bookmarker-sync/settings.json)")
	flags.Duration("timeout", defaultTimeout, "request timeout")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	a.v.SetEnvPrefix(envPrefix)
	a.v.AutomaticEnv()
	for key, flag := range map[string]string{
		keyBookmarksFile: "bookmarks",
		keyFormat:        "format",
		keySettings:      "settings",
		keyTimeout:       "timeout",
		keyVerbose:       "verbose",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newFoldersCmd(a),
		newSelectCmd(a),
		newServerCmd(a),
		newTokenCmd(a),
		newSyncCmd(a),
		newStatusCmd(a),
		newHashTokenCmd(),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	logger, err := buildLogger(a.v.GetBool(keyVerbose))
	if err != nil {
		return errors.Wrap(err, "build logger")
	}
	a.logger = logger

	path, err := a.settingsPath()
	if err != nil {
		return err
	}
	store, err := settings.Open(path)
	if err != nil {
		return err
	}
	a.store = store
	a.selection = settings.NewSelection(store, logger)

	logger.Debugw("settings loaded", "path", path, "command", cmd.CommandPath())
	return nil
}

func (a *app) settingsPath() (string, error) {
	if path := a.v.GetString(keySettings); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "find user config dir")
	}
	return filepath.Join(dir, "bookmarker-sync", "settings.json"), nil
}

func (a *app) source() (browser.Source, error) {
	return browser.OpenSource(a.v.GetString(keyBookmarksFile), a.v.GetString(keyFormat))
}

func buildLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
