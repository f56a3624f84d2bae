package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
)

// DefaultPort is the client-to-server port used when none is configured.
const DefaultPort = 5222

// Config is the complete client configuration.
type Config struct {
	// Accounts are keyed by a local name chosen by the user.
	Accounts map[string]Account `toml:"accounts" yaml:"accounts"`

	Log LogConfig `toml:"log" yaml:"log"`

	// ScriptsDir holds Lua scripts loaded at startup. Empty disables scripting.
	ScriptsDir string `toml:"scripts_dir" yaml:"scripts_dir"`
}

// LogConfig configures the file logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	File   string `toml:"file" yaml:"file"`
	Pretty bool   `toml:"pretty" yaml:"pretty"`
}

// Account holds the connection parameters of one identity.
type Account struct {
	JID      string `toml:"jid" yaml:"jid"`
	Password string `toml:"password" yaml:"password"`

	// Server and Port override the address derived from the JID domain.
	Server string `toml:"server" yaml:"server"`
	Port   int    `toml:"port" yaml:"port"`

	Resource    string `toml:"resource" yaml:"resource"`
	Nick        string `toml:"nick" yaml:"nick"`
	Autoconnect bool   `toml:"autoconnect" yaml:"autoconnect"`

	// InsecureSkipVerify disables certificate verification. Test servers only.
	InsecureSkipVerify bool `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Address returns the bare address of the account.
func (a Account) Address() (jid.JID, error) {
	addr, err := jid.Parse(a.JID)
	if err != nil {
		return jid.JID{}, err
	}
	return addr.Bare(), nil
}

// ID returns the account identity used to key session state.
func (a Account) ID() (account.Account, error) {
	return account.Parse(a.JID)
}

// Endpoint returns the host:port to dial.
func (a Account) Endpoint() (string, error) {
	addr, err := a.Address()
	if err != nil {
		return "", err
	}
	host := a.Server
	if host == "" {
		host = addr.Domainpart()
	}
	port := a.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Accounts: make(map[string]Account),
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dataDir(), "aparte.log"),
		},
	}
}

// DefaultPath returns the configuration file location under the user config
// directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "aparte", "config.toml")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "aparte")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "aparte")
	}
	return "."
}

// AccountNames returns the configured account names, sorted.
func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every account entry.
func (c *Config) Validate() error {
	seen := make(map[account.Account]string)
	for _, name := range c.AccountNames() {
		acct := c.Accounts[name]
		if acct.JID == "" {
			return fmt.Errorf("%w %q: jid is required", ErrInvalidAccount, name)
		}
		addr, err := jid.Parse(acct.JID)
		if err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidAccount, name, err)
		}
		if addr.Localpart() == "" {
			return fmt.Errorf("%w %q: jid %q has no local part", ErrInvalidAccount, name, acct.JID)
		}
		if addr.Resourcepart() != "" {
			return fmt.Errorf("%w %q: jid %q must be bare, use resource instead", ErrInvalidAccount, name, acct.JID)
		}
		if acct.Port < 0 || acct.Port > 65535 {
			return fmt.Errorf("%w %q: port %d out of range", ErrInvalidAccount, name, acct.Port)
		}
		id := account.New(addr)
		if other, dup := seen[id]; dup {
			return fmt.Errorf("%w %q: %s already configured as %q", ErrInvalidAccount, name, id, other)
		}
		seen[id] = name
	}
	return nil
}
