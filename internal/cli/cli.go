package cli

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/model"
	"github.com/bscott/mailsync/internal/output"
	"github.com/bscott/mailsync/internal/service"
)

var Version = "0.1.0"

type Globals struct {
	JSON    bool   `help:"Output as JSON" name:"json"`
	Config  string `help:"Path to config file" short:"c" type:"path"`
	Verbose bool   `help:"Debug logging" short:"v"`
	Quiet   bool   `help:"Suppress non-essential output" short:"q"`
	NoColor bool   `help:"Disable colored output" name:"no-color"`
}

type CLI struct {
	Globals

	Config  ConfigCmd  `cmd:"" help:"Configuration management"`
	Mail    MailCmd    `cmd:"" help:"Email operations"`
	Login   LoginCmd   `cmd:"" help:"Verify credentials and show the first inbox page"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type Context struct {
	Config    *config.Config
	Formatter *output.Formatter
	Globals   *Globals
	Logger    *logrus.Logger

	svc   *service.Service
	creds *model.Credentials
}

// NewContext loads the configuration and sets up output and logging. A
// missing or unreadable config file falls back to defaults with the
// environment applied.
func NewContext(globals *Globals) (*Context, error) {
	formatter := output.New(globals.JSON, globals.Quiet, globals.NoColor)

	var cfg *config.Config
	var err error

	if globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else if config.Exists() {
		cfg, err = config.Load("")
	}

	if err != nil || cfg == nil {
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
	}

	level := cfg.Log.Level
	switch {
	case globals.Verbose:
		level = "debug"
	case globals.Quiet:
		level = "warn"
	}
	logger, lerr := output.NewLogger(os.Stderr, level, cfg.Log.Format)
	if lerr != nil {
		return nil, lerr
	}
	if err != nil {
		logger.WithError(err).Warn("using default configuration")
	}

	return &Context{
		Config:    cfg,
		Formatter: formatter,
		Globals:   globals,
		Logger:    logger,
	}, nil
}

// Service returns the mail service, built on first use. The system
// password is looked up only here so commands that never send as the
// system identity do not touch the keyring for it.
func (c *Context) Service() *service.Service {
	if c.svc == nil {
		cfg := *c.Config
		if cfg.System.Address != "" {
			if pw, err := cfg.SystemPassword(); err == nil {
				cfg.System.Password = pw
			} else {
				c.Logger.WithError(err).Debug("system identity disabled")
				cfg.System.Address = ""
			}
		}
		c.svc = service.New(&cfg, c.Logger)
	}
	return c.svc
}

// Credentials returns the configured account and its keyring password.
func (c *Context) Credentials() (model.Credentials, error) {
	if c.creds != nil {
		return *c.creds, nil
	}
	if c.Config.Account.Email == "" {
		return model.Credentials{}, errNotConfigured
	}
	password, err := c.Config.GetPassword()
	if err != nil {
		return model.Credentials{}, err
	}
	creds := model.Credentials{Identity: c.Config.Account.Email, Secret: password}
	c.creds = &creds
	return creds, nil
}

// folder resolves the folder flag, falling back to the configured default.
func (c *Context) folder(name string) string {
	if name == "" {
		name = c.Config.Defaults.Folder
	}
	return service.CanonicalFolder(name)
}

func (c *Context) limit(n int) int {
	if n <= 0 {
		return c.Config.Defaults.Limit
	}
	return n
}

// ConfigCmd handles configuration management
type ConfigCmd struct {
	Init     ConfigInitCmd     `cmd:"" help:"Interactive setup wizard"`
	Show     ConfigShowCmd     `cmd:"" help:"Display current configuration"`
	Set      ConfigSetCmd      `cmd:"" help:"Set a configuration value"`
	Validate ConfigValidateCmd `cmd:"" help:"Test the IMAP login"`
}

type ConfigInitCmd struct{}

type ConfigShowCmd struct{}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Configuration key (e.g., account.email, imap.port, defaults.limit)"`
	Value string `arg:"" help:"Value to set"`
}

type ConfigValidateCmd struct{}

// MailCmd handles email operations
type MailCmd struct {
	List     MailListCmd     `cmd:"" help:"List a page of messages"`
	Read     MailReadCmd     `cmd:"" help:"Read a message"`
	Flag     MailFlagCmd     `cmd:"" help:"Change read, star and important markers"`
	Delete   MailDeleteCmd   `cmd:"" help:"Delete message(s)"`
	Move     MailMoveCmd     `cmd:"" help:"Move message(s) to another folder"`
	Download MailDownloadCmd `cmd:"" help:"Download an attachment"`
	Send     MailSendCmd     `cmd:"" help:"Compose and send email"`
	Reply    MailReplyCmd    `cmd:"" help:"Reply to a message"`
	Forward  MailForwardCmd  `cmd:"" help:"Forward a message"`
	Draft    DraftCmd        `cmd:"" help:"Manage drafts"`
}

type DraftCmd struct {
	Save DraftSaveCmd `cmd:"" help:"Save a draft"`
}

type MailListCmd struct {
	Folder string `help:"Folder name" short:"m"`
	Page   int    `help:"Page number, newest first" short:"p" default:"1"`
	Limit  int    `help:"Messages per page" short:"n"`
	Unread bool   `help:"Only show unread messages of the page"`
}

type MailReadCmd struct {
	UID    string `arg:"" help:"Message UID"`
	Folder string `help:"Folder name" short:"m"`
	HTML   bool   `help:"Print the HTML body" name:"html"`
}

type MailFlagCmd struct {
	UIDs        []string `arg:"" name:"uids" help:"Message UID(s)"`
	Folder      string   `help:"Folder name" short:"m"`
	Read        bool     `help:"Mark as read" xor:"read"`
	Unread      bool     `help:"Mark as unread" xor:"read"`
	Star        bool     `help:"Add star" xor:"star"`
	Unstar      bool     `help:"Remove star" xor:"star"`
	Important   bool     `help:"Mark important" xor:"important"`
	Unimportant bool     `help:"Clear important" xor:"important"`
}

type MailDeleteCmd struct {
	UIDs   []string `arg:"" name:"uids" help:"Message UID(s) to delete"`
	Folder string   `help:"Folder name" short:"m"`
}

type MailMoveCmd struct {
	UIDs        []string `arg:"" name:"uids" help:"Message UID(s) to move"`
	Destination string   `help:"Destination folder" short:"d" required:""`
	Folder      string   `help:"Source folder" short:"m"`
}

type MailDownloadCmd struct {
	UID    string `arg:"" help:"Message UID"`
	Index  int    `arg:"" help:"Attachment index (0-based)"`
	Folder string `help:"Folder name" short:"m"`
	Out    string `help:"Output path (default: attachment filename)" short:"o"`
}

type MailSendCmd struct {
	To      []string `help:"Recipient(s)" short:"t" required:""`
	CC      []string `help:"CC recipients"`
	BCC     []string `help:"BCC recipients"`
	Subject string   `help:"Subject line" short:"s" required:""`
	Body    string   `help:"Body text (or use stdin)" short:"b"`
	HTML    string   `help:"HTML body" name:"html"`
	Attach  []string `help:"Attachments" short:"a" type:"existingfile"`
}

type MailReplyCmd struct {
	UID    string   `arg:"" help:"Message UID to reply to"`
	Folder string   `help:"Folder of the original" short:"m"`
	All    bool     `help:"Reply to all recipients" name:"all"`
	Body   string   `help:"Reply body (or use stdin)" short:"b"`
	Attach []string `help:"Attachments" short:"a" type:"existingfile"`
}

type MailForwardCmd struct {
	UID    string   `arg:"" help:"Message UID to forward"`
	Folder string   `help:"Folder of the original" short:"m"`
	To     []string `help:"Recipient(s)" short:"t" required:""`
	Body   string   `help:"Additional message" short:"b"`
	Attach []string `help:"Additional attachments" short:"a" type:"existingfile"`
}

type DraftSaveCmd struct {
	To      []string `help:"Recipient(s)" short:"t"`
	CC      []string `help:"CC recipients"`
	Subject string   `help:"Subject line" short:"s"`
	Body    string   `help:"Body text (or use stdin)" short:"b"`
	Attach  []string `help:"Attachments" short:"a" type:"existingfile"`
}

type LoginCmd struct {
	Wait time.Duration `help:"How long to wait for the welcome message to be sent" default:"30s"`
}

// VersionCmd shows version information
type VersionCmd struct{}
