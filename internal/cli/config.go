package cli

import (
	"os"
	"os/user"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/samasrinivas/kafkautomation/errors"
)

// configFileName is resolved against the XDG config directories when no
// --config flag is given.
const configFileName = "kafkautomation/kafkautomation.toml"

// Config is the tool configuration, read from kafkautomation.toml.
type Config struct {
	// Checkout is the repository checkout holding domains/ and catalogs/.
	Checkout string `toml:"checkout"`

	// Holder identifies this operator in lock records. Defaults to
	// user@hostname.
	Holder string `toml:"holder"`

	Store StoreConfig `toml:"store"`
	Apply ApplyConfig `toml:"apply"`
}

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	// Backend is "git" or "s3". Defaults to "git".
	Backend string `toml:"backend"`

	Git GitConfig `toml:"git"`
	S3  S3Config  `toml:"s3"`
}

// GitConfig configures the git store backend. An empty Path means the
// store shares the declaration checkout, which matches a single-repo
// layout where catalogs/ lives next to domains/.
type GitConfig struct {
	Path        string `toml:"path"`
	RemoteURL   string `toml:"remote_url"`
	Branch      string `toml:"branch"`
	AuthorName  string `toml:"author_name"`
	AuthorEmail string `toml:"author_email"`
}

// S3Config configures the s3 store backend.
type S3Config struct {
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
	Region string `toml:"region"`
}

// ApplyConfig configures the hand-off to the external provisioning tool.
type ApplyConfig struct {
	// Command is the argv invoked with the emitted variables file path
	// appended. Empty means the variables file is written but nothing is
	// executed.
	Command []string `toml:"command"`
}

// LoadConfig reads the configuration from path, or from the XDG config
// directories when path is empty. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		found, err := xdg.SearchConfigFile(configFileName)
		if err != nil {
			cfg.applyDefaults()
			return cfg, nil
		}
		path = found
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Newf(errors.CodeInvalidConfig, "config file %q does not exist", path)
		}
		return Config{}, errors.Wrapf(err, errors.CodeInvalidConfig, "parsing config %q", path)
	}

	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Checkout == "" {
		c.Checkout = "."
	}
	if c.Holder == "" {
		c.Holder = defaultHolder()
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "git"
	}
	if c.Store.Git.Path == "" {
		c.Store.Git.Path = c.Checkout
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "git":
		return nil
	case "s3":
		if strings.TrimSpace(c.Store.S3.Bucket) == "" {
			return errors.New(errors.CodeInvalidConfig, "store.s3.bucket is required for the s3 backend")
		}
		return nil
	default:
		return errors.Newf(errors.CodeInvalidConfig, "unknown store backend %q (want git or s3)", c.Store.Backend)
	}
}

func defaultHolder() string {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return name + "@" + host
}
