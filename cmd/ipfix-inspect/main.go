package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ipfix-inspect"
	app.Usage = "collect IPFIX template announcements and report on what exporters send"
	app.UsageText = "ipfix-inspect [--listen ADDR | --file FILE] [--duration DURATION] [--format table|yaml|json]"
	app.Version = fmt.Sprintf("%s (built %s)", Version, BuildTime)
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	app.Flags = flags()
	app.Action = run
	return app
}
