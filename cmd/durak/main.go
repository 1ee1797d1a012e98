package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the durak match server"`
	Simulate SimulateCmd      `cmd:"" help:"Play bot-only matches and summarize the results"`
	Play     PlayCmd          `cmd:"" help:"Play a match on a server with a bot strategy"`
}

func options() []kong.Option {
	return []kong.Option{
		kong.Name("durak"),
		kong.Description("Durak rules engine, bots and match server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, options()...)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
