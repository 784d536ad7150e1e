package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/imap"
)

// readPassword reads a secret without echo. Swapped in tests.
var readPassword = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

func (c *ConfigInitCmd) Run(ctx *Context) error {
	out := ctx.Formatter
	out.Printf("mailsync configuration wizard\n")
	out.Printf("=============================\n\n")

	reader := bufio.NewReader(stdin)
	cfg := config.DefaultConfig()

	prompt := func(label, def string) string {
		if def != "" {
			out.Printf("%s [%s]: ", label, def)
		} else {
			out.Printf("%s: ", label)
		}
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}
	promptPort := func(label string, def int) (int, error) {
		v := prompt(label, strconv.Itoa(def))
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", strings.ToLower(label), v)
		}
		return port, nil
	}

	cfg.Account.Email = prompt("Email address", "")
	if cfg.Account.Email == "" {
		return fmt.Errorf("email address is required")
	}

	var err error
	cfg.IMAP.Host = prompt("IMAP host", cfg.IMAP.Host)
	if cfg.IMAP.Port, err = promptPort("IMAP port", cfg.IMAP.Port); err != nil {
		return err
	}
	cfg.IMAP.Security = prompt("IMAP security (tls, starttls, none)", cfg.IMAP.Security)
	cfg.SMTP.Host = prompt("SMTP host", cfg.SMTP.Host)
	if cfg.SMTP.Port, err = promptPort("SMTP port", cfg.SMTP.Port); err != nil {
		return err
	}
	cfg.SMTP.Security = prompt("SMTP security (tls, starttls, none)", cfg.SMTP.Security)
	cfg.System.Address = prompt("System sender address for welcome mail (blank to skip)", "")

	if err := cfg.Validate(); err != nil {
		return err
	}

	out.Printf("Mailbox password: ")
	password, err := readPassword()
	out.Printf("\n")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	var systemPassword string
	if cfg.System.Address != "" {
		out.Printf("System sender password: ")
		systemPassword, err = readPassword()
		out.Printf("\n")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	path := ctx.Globals.Config
	if path == "" {
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := cfg.SetPassword(password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	if systemPassword != "" {
		if err := cfg.SetSystemPassword(systemPassword); err != nil {
			return fmt.Errorf("failed to store system password in keyring: %w", err)
		}
	}

	out.Printf("\nConfiguration saved to %s\n", path)
	out.Printf("Passwords stored in the system keyring.\n\n")
	out.Printf("Test your connection with: mailsync config validate\n")
	return nil
}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	cfg := ctx.Config

	_, pwErr := cfg.GetPassword()
	passwordSet := pwErr == nil

	if ctx.Formatter.JSON {
		shown := *cfg
		shown.System.Password = ""
		return ctx.Formatter.Success(map[string]interface{}{
			"config":       shown,
			"password_set": passwordSet,
		})
	}

	path := ctx.Globals.Config
	if path == "" {
		path, _ = config.ConfigPath()
	}
	out := ctx.Formatter
	out.Printf("Configuration file: %s\n\n", path)

	out.Printf("Account:\n")
	out.Printf("  Email:    %s\n", cfg.Account.Email)
	if passwordSet {
		out.Printf("  Password: ********** (stored in keyring)\n")
	} else {
		out.Printf("  Password: not set (run 'mailsync config init' to set)\n")
	}

	out.Printf("\nServers:\n")
	out.Printf("  IMAP: %s (%s)\n", cfg.IMAP.Addr(), cfg.IMAP.Security)
	out.Printf("  SMTP: %s (%s)\n", cfg.SMTP.Addr(), cfg.SMTP.Security)

	out.Printf("\nFolders:\n")
	out.Printf("  Inbox:  %s\n", cfg.Folders.Inbox)
	out.Printf("  Sent:   %s\n", cfg.Folders.Sent)
	out.Printf("  Drafts: %s\n", cfg.Folders.Drafts)

	out.Printf("\nSystem identity:\n")
	if cfg.System.Address == "" {
		out.Printf("  not configured\n")
	} else {
		out.Printf("  %s <%s> (welcome: %v)\n", cfg.System.Name, cfg.System.Address, cfg.System.Welcome)
	}

	out.Printf("\nDefaults:\n")
	out.Printf("  Folder: %s\n", cfg.Defaults.Folder)
	out.Printf("  Limit:  %d\n", cfg.Defaults.Limit)
	out.Printf("  Format: %s\n", cfg.Defaults.Format)
	return nil
}

type setter func(cfg *config.Config, value string) error

func stringSetter(field func(*config.Config) *string) setter {
	return func(cfg *config.Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func intSetter(field func(*config.Config) *int) setter {
	return func(cfg *config.Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		*field(cfg) = n
		return nil
	}
}

func boolSetter(field func(*config.Config) *bool) setter {
	return func(cfg *config.Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		*field(cfg) = b
		return nil
	}
}

var setters = map[string]setter{
	"account.email":   stringSetter(func(c *config.Config) *string { return &c.Account.Email }),
	"imap.host":       stringSetter(func(c *config.Config) *string { return &c.IMAP.Host }),
	"imap.port":       intSetter(func(c *config.Config) *int { return &c.IMAP.Port }),
	"imap.security":   stringSetter(func(c *config.Config) *string { return &c.IMAP.Security }),
	"smtp.host":       stringSetter(func(c *config.Config) *string { return &c.SMTP.Host }),
	"smtp.port":       intSetter(func(c *config.Config) *int { return &c.SMTP.Port }),
	"smtp.security":   stringSetter(func(c *config.Config) *string { return &c.SMTP.Security }),
	"system.address":  stringSetter(func(c *config.Config) *string { return &c.System.Address }),
	"system.name":     stringSetter(func(c *config.Config) *string { return &c.System.Name }),
	"system.welcome":  boolSetter(func(c *config.Config) *bool { return &c.System.Welcome }),
	"folders.inbox":   stringSetter(func(c *config.Config) *string { return &c.Folders.Inbox }),
	"folders.sent":    stringSetter(func(c *config.Config) *string { return &c.Folders.Sent }),
	"folders.drafts":  stringSetter(func(c *config.Config) *string { return &c.Folders.Drafts }),
	"defaults.folder": stringSetter(func(c *config.Config) *string { return &c.Defaults.Folder }),
	"defaults.limit":  intSetter(func(c *config.Config) *int { return &c.Defaults.Limit }),
	"defaults.format": stringSetter(func(c *config.Config) *string { return &c.Defaults.Format }),
	"log.level":       stringSetter(func(c *config.Config) *string { return &c.Log.Level }),
	"log.format":      stringSetter(func(c *config.Config) *string { return &c.Log.Format }),
}

func settableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *ConfigSetCmd) Run(ctx *Context) error {
	set, ok := setters[c.Key]
	if !ok {
		return fmt.Errorf("unknown key %q (known keys: %s)", c.Key, strings.Join(settableKeys(), ", "))
	}
	if c.Key == "defaults.format" && c.Value != "text" && c.Value != "json" {
		return fmt.Errorf("format must be 'text' or 'json'")
	}

	if err := set(ctx.Config, c.Value); err != nil {
		return err
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}
	if err := ctx.Config.Save(ctx.Globals.Config); err != nil {
		return err
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Set %s = %s", c.Key, c.Value))
	return nil
}

func (c *ConfigValidateCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}

	dialer := imap.NewDialer(ctx.Config.IMAP, ctx.Logger)
	err = dialer.WithSession(context.Background(), creds, func(*imap.Session) error { return nil })
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Logged in to %s as %s", ctx.Config.IMAP.Addr(), creds.Identity))
	return nil
}
