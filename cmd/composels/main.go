// Package main provides the composels CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "composels",
		Version: version,
		Usage:   "Docker Compose language tooling",
		Commands: []*cli.Command{
			fmtCommand(),
			pathCommand(),
			completeCommand(),
			tokensCommand(),
			exploreCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
