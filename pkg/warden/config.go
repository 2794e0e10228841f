// Copyright 2024-2026 Aiku AI

package warden

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// ChannelConfig designates the log channels the dispatchers forward to,
// by channel name.
type ChannelConfig struct {
	JailLog     string `yaml:"jail_log"`
	WatchLog    string `yaml:"watch_log"`
	QuestionLog string `yaml:"question_log"`
	ModLog      string `yaml:"mod_log"`
	JoinLog     string `yaml:"join_log"`
}

// EmojiConfig names the recognized action emoji.
type EmojiConfig struct {
	// Flag forwards the message to the moderator log.
	Flag string `yaml:"flag"`
	// Archive routes the message through the archive mappings.
	Archive string `yaml:"archive"`
	// Question forwards the message to the question log.
	Question string `yaml:"question"`
}

// Config holds the bot configuration. It is loaded once at startup and
// read-only afterwards.
type Config struct {
	ServerURL string `yaml:"server_url"`
	BotToken  string `yaml:"bot_token"`

	CommandPrefix string `yaml:"command_prefix"`
	LogFile       string `yaml:"log_file"`
	Debug         bool   `yaml:"debug"`

	// JailRole is the quarantine role assigned on blacklist hits.
	JailRole string `yaml:"jail_role"`
	// PreserveRoles are kept through quarantine if the user already holds
	// them (donor tier and server boost in the reference community).
	PreserveRoles []string `yaml:"preserve_roles"`
	// PrivilegedRoles may trigger reaction actions.
	PrivilegedRoles []string `yaml:"privileged_roles"`

	Channels ChannelConfig `yaml:"channels"`
	Emoji    EmojiConfig   `yaml:"emoji"`

	WordRules       []WordRule       `yaml:"word_rules"`
	ArchiveMappings []ArchiveMapping `yaml:"archive_mappings"`

	// Exclusions maps a command name or emoji name (or "wordlist" for the
	// message scanner) to the channels where it is disabled. Channel names
	// compare case-insensitively.
	Exclusions map[string][]string `yaml:"exclusions"`

	// Cooldowns overrides the default per-command cooldown, in seconds.
	Cooldowns map[string]int `yaml:"cooldowns"`

	// BanList is a static set of user IDs barred from the guild.
	BanList []string `yaml:"ban_list"`

	banned map[string]struct{} `yaml:"-"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// LoadConfig reads and validates the configuration file. Environment
// variables WARDEN_SERVER_URL and WARDEN_BOT_TOKEN override the file values
// so secrets can stay out of it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if url := os.Getenv("WARDEN_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if token := os.Getenv("WARDEN_BOT_TOKEN"); token != "" {
		cfg.BotToken = token
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PostProcess applies defaults, builds lookup sets, and validates.
func (c *Config) PostProcess() error {
	if c.CommandPrefix == "" {
		c.CommandPrefix = "!"
	}
	if c.JailRole == "" {
		c.JailRole = "Jailed"
	}
	c.banned = make(map[string]struct{}, len(c.BanList))
	for _, id := range c.BanList {
		c.banned[id] = struct{}{}
	}
	return c.Validate()
}

// Validate checks the parts of the configuration the bot cannot run without.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url: required")
	}
	if c.BotToken == "" {
		return fmt.Errorf("bot_token: required")
	}
	for _, r := range c.WordRules {
		// An empty includes rule would match every message.
		if r.Text == "" {
			return fmt.Errorf("word rule: text is required")
		}
		switch r.List {
		case ListBlacklist, ListWatchlist, ListGreylist:
		default:
			return fmt.Errorf("word rule %q: unknown list type %q", r.Text, r.List)
		}
		switch r.Filter {
		case FilterExact, FilterIncludes:
		default:
			return fmt.Errorf("word rule %q: unknown filter type %q", r.Text, r.Filter)
		}
	}
	for _, m := range c.ArchiveMappings {
		if m.From == "" || m.To == "" {
			return fmt.Errorf("archive mapping: from and to are required")
		}
	}
	return nil
}

// IsExcluded reports whether the given command or emoji context is disabled
// in the named channel. Channel names compare case-insensitively.
func (c *Config) IsExcluded(context, channelName string) bool {
	for _, name := range c.Exclusions[context] {
		if strings.EqualFold(name, channelName) {
			return true
		}
	}
	return false
}

// CooldownFor returns the configured cooldown for a command, or zero when
// unset (the gate then applies its default).
func (c *Config) CooldownFor(command string) time.Duration {
	return time.Duration(c.Cooldowns[command]) * time.Second
}

// Banned reports whether a user ID is on the static ban list.
func (c *Config) Banned(userID string) bool {
	_, ok := c.banned[userID]
	return ok
}

// ActionEmoji returns the set of recognized action emoji names.
func (c *Config) ActionEmoji() []string {
	return []string{c.Emoji.Flag, c.Emoji.Archive, c.Emoji.Question}
}
