package cli

import (
	"context"
	"time"
)

func (c *LoginCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}

	page, welcome, err := ctx.Service().Login(context.Background(), creds)
	if err != nil {
		return err
	}
	if err := ctx.Formatter.Page(page); err != nil {
		return err
	}

	// The process would otherwise exit before the welcome message leaves.
	select {
	case err, ok := <-welcome:
		if ok && err == nil {
			ctx.Logger.WithField("to", creds.Identity).Debug("welcome message sent")
		}
	case <-time.After(c.Wait):
		ctx.Logger.Warn("gave up waiting for the welcome message")
	}
	return nil
}
