package main

import (
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/fwojciec/sitegen"
	sitegenhttp "github.com/fwojciec/sitegen/http"
)

func stopCommand() *cli.Command {
	return &cli.Command{
		Name:   "stop",
		Usage:  "Stop the active generation for an owner on a running server",
		Flags:  []cli.Flag{ownerFlag, serverFlag, noColorFlag},
		Action: stopAction,
	}
}

func stopAction(c *cli.Context) error {
	server := c.String("server")
	if server == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		server = serverURL(cfg.Server.Addr)
	}
	if err := sitegenhttp.NewClient(server).Stop(c.Context, c.Int64("owner")); err != nil {
		return err
	}
	r := newRenderer(os.Stdout, newStyles(sitegen.DefaultTheme(), !c.Bool("no-color")))
	r.Status("stopped generation for owner %d", c.Int64("owner"))
	return nil
}

// serverURL turns a listen address into a base URL on the local host.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
