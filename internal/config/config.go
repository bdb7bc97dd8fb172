package config

import (
	"fmt"
	"os"
	"path/filepath"

	"atomkit/internal/cache"
	"atomkit/internal/orm"
	"atomkit/lib/configutil"
	"atomkit/lib/logutil"
	"atomkit/lib/telemetry"
)

type Config struct {
	Key2Captcha string `json:"key_2captcha" toml:"key_2captcha"`

	SmartProxyUsr   string `json:"smart_proxy_usr" toml:"smart_proxy_usr"`
	SmartProxyPwd   string `json:"smart_proxy_pwd" toml:"smart_proxy_pwd"`
	SmartProxyCheck string `json:"smart_proxy_check" toml:"smart_proxy_check"`

	YourlsDomain string `json:"yourls_domain" toml:"yourls_domain"`
	YourlsKey    string `json:"yourls_key" toml:"yourls_key"`

	PostfixDomain   string `json:"postfix_domain" toml:"postfix_domain"`
	PostfixPortImap int    `json:"postfix_port_imap" toml:"postfix_port_imap"`
	PostfixPortSmtp int    `json:"postfix_port_smtp" toml:"postfix_port_smtp"`
	PostfixUsr      string `json:"postfix_usr" toml:"postfix_usr"`
	PostfixPwd      string `json:"postfix_pwd" toml:"postfix_pwd"`
	PostfixSSL      bool   `json:"postfix_ssl" toml:"postfix_ssl"`

	TwilioSid    string `json:"twilio_sid" toml:"twilio_sid"`
	TwilioToken  string `json:"twilio_token" toml:"twilio_token"`
	TwilioNumber string `json:"twilio_number" toml:"twilio_number"`

	DomdetailerApp string `json:"domdetailer_app" toml:"domdetailer_app"`
	DomdetailerKey string `json:"domdetailer_key" toml:"domdetailer_key"`

	PixabayKey string `json:"pixabay_key" toml:"pixabay_key"`

	UserAgent     string `json:"user_agent" toml:"user_agent"`
	ProxyURL      string `json:"proxy_url" toml:"proxy_url"`
	ChromeVersion string `json:"chrome_version" toml:"chrome_version"`

	Log       logutil.Options  `json:"log" toml:"log"`
	Telemetry telemetry.Config `json:"telemetry" toml:"telemetry"`
	Cache     cache.Config     `json:"cache" toml:"cache"`
	DB        orm.Config       `json:"db" toml:"db"`
	// path to a maxmind city database
	GeoDB string `json:"geo_db" toml:"geo_db"`
	Dirs  Dirs   `json:"dirs" toml:"dirs"`
}

// New returns a config holding only defaults.
func New() Config {
	return Config{
		Log:   logutil.DefaultOptions(),
		Cache: cache.DefaultConfig(),
		Dirs:  Dirs{Root: "."},
	}
}

// Load reads the config file at path (and its `.local.` sibling) over the
// defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfigOver(path, New())
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func Save(cfg Config, path string) error {
	err := configutil.WriteConfig(path, cfg)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Dirs are the working directories, relative to Root.
type Dirs struct {
	Root string `json:"root" toml:"root"`
}

func (d Dirs) path(parts ...string) string {
	root := d.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

func (d Dirs) Data() string  { return d.path("data") }
func (d Dirs) Cache() string { return d.path("out", "cache") }
func (d Dirs) Debug() string { return d.path("out", "debug") }
func (d Dirs) Log() string   { return d.path("out", "log") }
func (d Dirs) Tmp() string   { return d.path("out", "tmp") }

func (d Dirs) All() []string {
	return []string{d.Data(), d.Cache(), d.Debug(), d.Log(), d.Tmp()}
}

// Ensure creates every working directory.
func (d Dirs) Ensure() error {
	for _, dir := range d.All() {
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			return fmt.Errorf("ensure dirs: %w", err)
		}
	}
	return nil
}
