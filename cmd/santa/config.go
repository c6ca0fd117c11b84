package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bananalabs-oss/stocking/internal/client"
	"github.com/bananalabs-oss/stocking/internal/device"
)

type Config struct {
	server     string
	deviceFile string
	room       string
	timeout    time.Duration
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url: %q", c.server)
	}
	if c.timeout <= 0 {
		return errors.New("--timeout must be positive")
	}
	return nil
}

// client loads (or creates) this machine's device id and returns a client for it.
func (c *Config) client() (*client.Client, error) {
	path := c.deviceFile
	if path == "" {
		var err error
		if path, err = device.DefaultPath(); err != nil {
			return nil, fmt.Errorf("cannot locate device file, pass --device-file: %w", err)
		}
	}
	id, err := device.FileStore{Path: path}.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load device id from %s: %w", path, err)
	}
	return client.New(c.server, id), nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STOCKING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "santa",
		Short:         "Run a Secret Santa exchange from the terminal.",
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8004", "stocking server url (env: STOCKING_SERVER)")
	fs.StringVar(&cfg.deviceFile, "device-file", "", "file holding this device's id (env: STOCKING_DEVICE_FILE)")
	fs.StringVarP(&cfg.room, "room", "r", "", "room used to resolve participant names (env: STOCKING_ROOM)")
	fs.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "time to wait for each command (env: STOCKING_TIMEOUT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		createCmd(cfg),
		joinCmd(cfg),
		whoamiCmd(cfg),
		listCmd(cfg),
		addCmd(cfg),
		claimCmd(cfg),
		releaseCmd(cfg),
		removeCmd(cfg),
		excludeCmd(cfg),
		unexcludeCmd(cfg),
		drawCmd(cfg),
		resetCmd(cfg),
		revealCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("santa v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
