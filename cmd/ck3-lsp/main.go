// Command ck3-lsp starts the language server of spec §6 over stdio.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lspserver"
)

// schemasDirName is the workspace-relative directory the schema
// registry loads from and watches (spec §3 "Schema").
const schemasDirName = "schemas"

type cli struct {
	LogLevel string `name:"log-level" enum:"debug,info,warning,error" default:"info" help:"Minimum level of log messages written to stderr."`
	Workers  int    `name:"workers" default:"0" help:"Worker pool size; 0 uses the pool default, min(4, CPUs+1)."`
}

// Run starts the server and blocks until the client disconnects or
// sends exit, matching spec §6's "Exit code 0 on clean shutdown,
// non-zero on uncaught startup error."
func (c *cli) Run() error {
	logger := log.New(c.LogLevel)

	ws := lspserver.New(afero.NewOsFs(), logger, c.Workers, schemasDirName)
	srv := lspserver.NewServer(ws, logger)

	logger.Info("ck3-lsp starting", "workers", c.Workers)
	srv.Run(context.Background())
	logger.Info("ck3-lsp exiting")
	return nil
}

func main() {
	c := cli{}
	parser := kong.Must(&c,
		kong.Name("ck3-lsp"),
		kong.Description("Language server for CK3-style scripted event files."),
	)
	kongCtx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kongCtx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
