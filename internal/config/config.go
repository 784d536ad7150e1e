package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	AppName         = "mailsync"
	SystemKeyringID = "system-identity"

	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"

	DefaultIMAPPort    = 993
	DefaultSMTPPort    = 465
	DefaultInlineLimit = 1 << 20
)

type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Security           string        `yaml:"security"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type IMAPConfig = ServerConfig
type SMTPConfig = ServerConfig

// SystemConfig is the identity used for mail sent on the service's own
// behalf, such as welcome messages.
type SystemConfig struct {
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	Password string `yaml:"-"`
	Welcome  bool   `yaml:"welcome"`
}

type FoldersConfig struct {
	Inbox  string `yaml:"inbox"`
	Sent   string `yaml:"sent"`
	Drafts string `yaml:"drafts"`
}

type AttachmentsConfig struct {
	InlineLimit  int           `yaml:"inline_limit"`
	DownloadPath string        `yaml:"download_path"`
	UploadDir    string        `yaml:"upload_dir"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type CategoriesConfig struct {
	Version         int               `yaml:"version"`
	PromoKeywords   []string          `yaml:"promo_keywords,omitempty"`
	WorkDomains     []string          `yaml:"work_domains,omitempty"`
	PersonalMarkers []string          `yaml:"personal_markers,omitempty"`
	Colors          map[string]string `yaml:"colors,omitempty"`
}

type AccountConfig struct {
	Email string `yaml:"email"`
}

type DefaultsConfig struct {
	Folder string `yaml:"folder"`
	Limit  int    `yaml:"limit"`
	Format string `yaml:"format"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	IMAP        IMAPConfig        `yaml:"imap"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	System      SystemConfig      `yaml:"system"`
	Folders     FoldersConfig     `yaml:"folders"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Categories  CategoriesConfig  `yaml:"categories"`
	Account     AccountConfig     `yaml:"account"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
	Log         LogConfig         `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		IMAP: IMAPConfig{
			Host:     "127.0.0.1",
			Port:     DefaultIMAPPort,
			Security: SecurityTLS,
			Timeout:  30 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     "127.0.0.1",
			Port:     DefaultSMTPPort,
			Security: SecurityTLS,
			Timeout:  30 * time.Second,
		},
		System: SystemConfig{
			Name:    "Mailsync",
			Welcome: true,
		},
		Folders: FoldersConfig{
			Inbox:  "INBOX",
			Sent:   "Sent",
			Drafts: "Drafts",
		},
		Attachments: AttachmentsConfig{
			InlineLimit:  DefaultInlineLimit,
			DownloadPath: "/api/download-attachment",
			UploadDir:    "uploads",
			FetchTimeout: 30 * time.Second,
		},
		Categories: CategoriesConfig{
			Version: 1,
		},
		Defaults: DefaultsConfig{
			Folder: "INBOX",
			Limit:  10,
			Format: "text",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the YAML config at path (the default location when empty) and
// applies environment overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s - run 'mailsync config init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a config from defaults plus environment variables only.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the deployment environment variables on c.
func (c *Config) ApplyEnv() {
	c.IMAP.Host = getEnv("IMAP_HOST", c.IMAP.Host)
	c.IMAP.Port = getEnvInt("IMAP_PORT", c.IMAP.Port)
	c.IMAP.Security = getEnvSecurity("IMAP_SECURE", c.IMAP.Security)
	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = getEnvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Security = getEnvSecurity("SMTP_SECURE", c.SMTP.Security)
	c.System.Address = getEnv("SITE_EMAIL", c.System.Address)
	c.System.Password = getEnv("SITE_PASSWORD", c.System.Password)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	for name, s := range map[string]ServerConfig{"imap": c.IMAP, "smtp": c.SMTP} {
		switch s.Security {
		case SecurityTLS, SecurityStartTLS, SecurityNone:
		default:
			return fmt.Errorf("%s.security must be one of tls, starttls, none (got %q)", name, s.Security)
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("%s.port out of range: %d", name, s.Port)
		}
	}
	if c.Defaults.Limit <= 0 {
		return errors.New("defaults.limit must be positive")
	}
	return nil
}

func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) SetPassword(password string) error {
	if c.Account.Email == "" {
		return errors.New("email must be set before storing password")
	}
	return keyring.Set(AppName, c.Account.Email, password)
}

func (c *Config) GetPassword() (string, error) {
	if c.Account.Email == "" {
		return "", errors.New("email not configured")
	}
	password, err := keyring.Get(AppName, c.Account.Email)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("password not found in keyring - run 'mailsync config init' to set it")
		}
		return "", fmt.Errorf("failed to get password from keyring: %w", err)
	}
	return password, nil
}

// SystemPassword returns the system identity secret, preferring the
// environment and falling back to the keyring.
func (c *Config) SystemPassword() (string, error) {
	if c.System.Password != "" {
		return c.System.Password, nil
	}
	if c.System.Address == "" {
		return "", errors.New("system identity not configured")
	}
	password, err := keyring.Get(AppName+"-"+SystemKeyringID, c.System.Address)
	if err != nil {
		return "", fmt.Errorf("system password unavailable: %w", err)
	}
	return password, nil
}

func (c *Config) SetSystemPassword(password string) error {
	if c.System.Address == "" {
		return errors.New("system address must be set before storing its password")
	}
	return keyring.Set(AppName+"-"+SystemKeyringID, c.System.Address, password)
}

func DeletePassword(email string) error {
	return keyring.Delete(AppName, email)
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvSecurity maps a boolean *_SECURE variable onto a security mode:
// true is implicit TLS, false is STARTTLS. "none" disables TLS entirely.
func getEnvSecurity(key, fallback string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "true", "1", "yes", SecurityTLS:
		return SecurityTLS
	case "false", "0", "no", SecurityStartTLS:
		return SecurityStartTLS
	case SecurityNone:
		return SecurityNone
	}
	return fallback
}
