package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
	"github.com/rlch/composels/lsp"
)

var errUsage = errors.New("expected FILE LINE:COL")

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

func pathCommand() *cli.Command {
	return &cli.Command{
		Name:      "path",
		Usage:     "Print the logical path at a position",
		ArgsUsage: "FILE LINE:COL",
		Action:    runPath,
	}
}

func completeCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "List completions at a position",
		ArgsUsage: "FILE LINE:COL",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "advanced",
				Usage: "include advanced completions",
			},
		},
		Action: runComplete,
	}
}

func runPath(_ context.Context, cmd *cli.Command) error {
	snap, pos, err := positionArgs(cmd)
	if err != nil {
		return err
	}

	info, err := analysis.ResolvePosition(snap, pos)
	if err != nil {
		return err
	}

	styled := isTerminal(os.Stdout)

	printField(os.Stdout, styled, "path", info.LogicalPath)
	printField(os.Stdout, styled, "depth", strconv.FormatFloat(info.IndentDepth, 'f', -1, 64))
	printField(os.Stdout, styled, "region", string(info.Region))

	return nil
}

func runComplete(ctx context.Context, cmd *cli.Command) error {
	snap, pos, err := positionArgs(cmd)
	if err != nil {
		return err
	}

	cfg := loadConfig(filepath.Dir(cmd.Args().First()))
	if cmd.Bool("advanced") {
		cfg.Completion.Advanced = true
	}

	rc, err := lsp.NewRequestContext(snap, pos, cfg, zap.NewNop())
	if err != nil {
		return err
	}

	items, err := lsp.Dispatch(ctx, lsp.CapabilityCompletion, rc, lsp.DefaultRegistry().Completion, lsp.Union[protocol.CompletionItem])
	if err != nil {
		return err
	}

	styled := isTerminal(os.Stdout)

	for _, item := range items {
		printField(os.Stdout, styled, item.Label, item.Detail)
	}

	return nil
}

// positionArgs reads FILE and a 1-based LINE:COL from the arguments.
func positionArgs(cmd *cli.Command) (*composels.Snapshot, protocol.Position, error) {
	if cmd.Args().Len() != 2 {
		return nil, protocol.Position{}, errUsage
	}

	snap, err := loadSnapshot(cmd.Args().Get(0))
	if err != nil {
		return nil, protocol.Position{}, err
	}

	pos, err := parsePosition(cmd.Args().Get(1))
	if err != nil {
		return nil, protocol.Position{}, err
	}

	return snap, pos, nil
}

func loadSnapshot(path string) (*composels.Snapshot, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return composels.NewSnapshot(uri.File(abs), 0, string(data)), nil
}

func loadConfig(dir string) *composels.Config {
	cfg, err := composels.LoadConfig(dir)
	if err != nil {
		return composels.DefaultConfig()
	}

	return cfg
}

func parsePosition(arg string) (protocol.Position, error) {
	lineText, colText, ok := strings.Cut(arg, ":")
	if !ok {
		return protocol.Position{}, fmt.Errorf("position %q: %w", arg, errUsage)
	}

	line, err := strconv.ParseUint(lineText, 10, 32)
	if err != nil || line == 0 {
		return protocol.Position{}, fmt.Errorf("line %q: %w", lineText, errUsage)
	}

	col, err := strconv.ParseUint(colText, 10, 32)
	if err != nil || col == 0 {
		return protocol.Position{}, fmt.Errorf("column %q: %w", colText, errUsage)
	}

	return protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)}, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

func printField(w io.Writer, styled bool, label, value string) {
	if !styled {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", label, value)

		return
	}

	_, _ = fmt.Fprintf(w, "%s  %s\n", valueStyle.Render(label), detailStyle.Render(value))
}
