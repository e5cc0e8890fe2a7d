package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/rlch/composels"
)

var errNoFile = errors.New("expected FILE")

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "Dump the token stream of a compose file",
		ArgsUsage: "FILE",
		Action:    runTokens,
	}
}

func runTokens(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errNoFile
	}

	data, err := os.ReadFile(cmd.Args().First()) //#nosec G304 -- paths come from user args
	if err != nil {
		return err
	}

	styled := isTerminal(os.Stdout)

	for _, tok := range composels.Tokenize(string(data)) {
		pos := fmt.Sprintf("%d:%d", tok.Pos.Line, tok.Pos.Column)
		name := composels.TokenName(tok.Type)

		if styled {
			_, _ = fmt.Fprintf(os.Stdout, "%-8s %-14s %s\n",
				labelStyle.Render(pos), valueStyle.Render(name), strconv.Quote(tok.Value))

			continue
		}

		_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", pos, name, strconv.Quote(tok.Value))
	}

	return nil
}
