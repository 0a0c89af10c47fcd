package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/journal-submission-api/internal/client"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/spf13/viper"
)

const (
	configName = ".journalctl"
	envPrefix  = "JOURNALCTL"
)

type globalFlags struct {
	configPath string
	apiURL     string
	token      string
	locale     string
}

// cliConfig is the resolved CLI configuration.
type cliConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	Locale  string        `mapstructure:"locale"`
}

type commandContext struct {
	flags *globalFlags
	v     *viper.Viper

	configOnce sync.Once
	config     *cliConfig
	configErr  error

	clientOnce sync.Once
	client     *client.Client
	clientErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags, v: viper.New()}
}

func (c *commandContext) ensureConfig() (*cliConfig, error) {
	c.configOnce.Do(func() {
		v := c.v
		v.SetDefault("api_url", "http://localhost:8080")
		v.SetDefault("timeout", 30*time.Second)
		v.SetDefault("retries", 3)
		v.SetDefault("locale", "en")

		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()

		if path := strings.TrimSpace(c.flags.configPath); path != "" {
			v.SetConfigFile(path)
		} else {
			if home, err := os.UserHomeDir(); err == nil {
				v.AddConfigPath(home)
			}
			v.SetConfigName(configName)
			v.SetConfigType("yaml")
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !(c.flags.configPath != "" && os.IsNotExist(err)) {
				c.configErr = fmt.Errorf("read config: %w", err)
				return
			}
		}

		if c.flags.apiURL != "" {
			v.Set("api_url", c.flags.apiURL)
		}
		if c.flags.token != "" {
			v.Set("token", c.flags.token)
		}
		if c.flags.locale != "" {
			v.Set("locale", c.flags.locale)
		}

		var cfg cliConfig
		if err := v.Unmarshal(&cfg); err != nil {
			c.configErr = fmt.Errorf("parse config: %w", err)
			return
		}
		if !slices.Contains(models.Languages, cfg.Locale) {
			cfg.Locale = "en"
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiClient() (*client.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.clientErr = err
			return
		}
		c.client, c.clientErr = client.New(client.Config{
			BaseURL: cfg.APIURL,
			Token:   cfg.Token,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
		})
	})
	return c.client, c.clientErr
}

// manager builds a lifecycle manager for the token holder. Without a
// token the session is anonymous.
func (c *commandContext) manager(ctx context.Context) (*lifecycle.Manager, *client.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	api, err := c.apiClient()
	if err != nil {
		return nil, nil, err
	}

	session := lifecycle.Session{Locale: cfg.Locale}
	if cfg.Token != "" {
		me, err := api.Me(ctx)
		if err != nil {
			return nil, nil, err
		}
		session.Actor = lifecycle.ActorFromUser(me)
	}
	return lifecycle.NewManager(api, session, lifecycle.WithTimeout(cfg.Timeout)), api, nil
}

// saveToken persists token to the config file in use, creating
// $HOME/.journalctl.yaml when none exists.
func (c *commandContext) saveToken(token string) (string, error) {
	if _, err := c.ensureConfig(); err != nil {
		return "", err
	}
	path := c.v.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(home, configName+".yaml")
	}

	c.v.Set("token", token)
	if err := c.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("restrict config permissions: %w", err)
	}
	return path, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid submission id %q", arg)
	}
	return id, nil
}

func deadlineSoon() time.Time {
	return time.Now().Add(time.Second)
}
