package cli

import (
	"runtime"
)

func (c *VersionCmd) Run(ctx *Context) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"name":       "mailsync",
			"version":    Version,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		})
	}

	ctx.Formatter.Printf("mailsync version %s\n", Version)
	ctx.Formatter.Printf("Go version: %s\n", runtime.Version())
	ctx.Formatter.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
