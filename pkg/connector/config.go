// Copyright 2024-2026 Aiku AI

package connector

import (
	_ "embed"
	"fmt"
	"text/template"
	"time"

	"github.com/kelseyhightower/envconfig"
	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// EnvPrefix is the prefix of environment variables that override the
// config file, e.g. SOCKBOT_TOKEN.
const EnvPrefix = "SOCKBOT"

// Config holds the forum provider configuration.
type Config struct {
	ServerURL string `yaml:"server_url" split_words:"true"`
	// Token is a Mattermost bot or personal access token.
	Token string `yaml:"token" split_words:"true"`
	// Username is the name the bot is mentioned by. Defaults to the
	// username of the token's account.
	Username string `yaml:"username" split_words:"true"`
	// Owner is the username of the bot's owner.
	Owner               string `yaml:"owner" split_words:"true"`
	DisplaynameTemplate string `yaml:"displayname_template" split_words:"true"`
	// BotPrefix is a username prefix for echo prevention. Posts from any
	// username starting with this prefix never trigger commands. Leave empty
	// to disable prefix-based filtering.
	BotPrefix string `yaml:"bot_prefix" split_words:"true"`
	// AdminAPIAddr is the listen address for the admin HTTP API. Leave
	// empty to disable it.
	AdminAPIAddr string `yaml:"admin_api_addr" split_words:"true"`
	// CommandTimeout is the number of seconds a command may take to resolve
	// and execute.
	CommandTimeout    int    `yaml:"command_timeout" split_words:"true"`
	MentionIgnoreCase bool   `yaml:"mention_ignore_case" split_words:"true"`
	CommandPrefix     string `yaml:"command_prefix" split_words:"true"`

	displaynameTemplate *template.Template `yaml:"-"`
}

// DisplaynameParams holds the parameters for rendering the displayname template.
type DisplaynameParams struct {
	Username  string
	Nickname  string
	FirstName string
	LastName  string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess applies environment overrides and compiles templates.
func (c *Config) PostProcess() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.DisplaynameTemplate)
	return err
}

// Validate checks that the settings needed to log in are present.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative")
	}
	return nil
}

// CommandTimeoutDuration returns the command timeout, or
// DefaultCommandTimeout if unset.
func (c *Config) CommandTimeoutDuration() time.Duration {
	if c.CommandTimeout <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.CommandTimeout) * time.Second
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "server_url")
	helper.Copy(up.Str, "token")
	helper.Copy(up.Str, "username")
	helper.Copy(up.Str, "owner")
	helper.Copy(up.Str, "displayname_template")
	helper.Copy(up.Str, "bot_prefix")
	helper.Copy(up.Str, "admin_api_addr")
	helper.Copy(up.Int, "command_timeout")
	helper.Copy(up.Bool, "mention_ignore_case")
	helper.Copy(up.Str, "command_prefix")
}

// ConfigUpgrader returns the upgrader that merges a user config file into
// the embedded example config.
func ConfigUpgrader() *up.StructUpgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks: [][]string{
			{"admin_api_addr"},
			{"command_timeout"},
		},
		Base: ExampleConfig,
	}
}

// LoadConfig reads the config file at path, upgrading it against the
// example config (and writing the result back if save is set), then applies
// environment overrides.
func LoadConfig(path string, save bool) (*Config, error) {
	data, _, err := up.Do(path, save, ConfigUpgrader())
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("failed to post-process config: %w", err)
	}
	return &cfg, nil
}

// FormatDisplayname generates a display name from the template and params.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	if c.displaynameTemplate == nil {
		return params.Username
	}
	var buf []byte
	err := c.displaynameTemplate.Execute(
		(*templateBuffer)(&buf),
		params,
	)
	if err != nil {
		return params.Username
	}
	return string(buf)
}

// templateBuffer is a simple io.Writer that appends to a byte slice.
type templateBuffer []byte

func (b *templateBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
