package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/composels"
)

var errNoComposeFiles = errors.New("no compose files found")

const filePermissions = 0o600

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Aliases:   []string{"format"},
		Usage:     "Format compose files",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write result to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "check if files are formatted (exit 1 if not)",
			},
			&cli.IntFlag{
				Name:    "indent",
				Aliases: []string{"i"},
				Usage:   "spaces per indentation level (overrides config)",
			},
		},
		Action: runFmt,
	}
}

func runFmt(_ context.Context, cmd *cli.Command) error {
	write := cmd.Bool("write")
	check := cmd.Bool("check")
	args := cmd.Args().Slice()

	opts := composels.FormatOptions{Indent: int(cmd.Int("indent"))}

	if len(args) == 0 {
		return formatStdin(os.Stdout, opts)
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoComposeFiles
	}

	var unformatted []string

	for _, file := range files {
		changed, err := formatFile(file, fileOptions(file, opts), write || check, write, os.Stdout)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		if changed {
			unformatted = append(unformatted, file)
		}
	}

	if check && len(unformatted) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "The following files are not formatted:\n")

		for _, f := range unformatted {
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n", f)
		}

		return cli.Exit("", 1)
	}

	return nil
}

// fileOptions fills the indent from the config nearest to path unless a
// flag already set it.
func fileOptions(path string, opts composels.FormatOptions) composels.FormatOptions {
	if opts.Indent > 0 {
		return opts
	}

	cfg, err := composels.LoadConfig(filepath.Dir(path))
	if err == nil {
		opts.Indent = cfg.Format.Indent
	}

	return opts
}

func isComposeFile(path string) bool {
	ext := filepath.Ext(path)

	return ext == ".yaml" || ext == ".yml"
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != arg {
				return filepath.SkipDir
			}

			if !d.IsDir() && isComposeFile(path) && strings.Contains(d.Name(), "compose") {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func formatStdin(out io.Writer, opts composels.FormatOptions) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	formatted, err := composels.Format(string(data), opts)
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, formatted)

	return err
}

// formatFile reports whether path needed formatting. Output goes to out
// unless quiet is set.
func formatFile(path string, opts composels.FormatOptions, quiet, write bool, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return false, err
	}

	formatted, err := composels.Format(string(data), opts)
	if err != nil {
		return false, err
	}

	changed := string(data) != formatted

	if write && changed {
		if err := os.WriteFile(path, []byte(formatted), filePermissions); err != nil {
			return true, err
		}

		_, _ = fmt.Fprintf(out, "%s\n", path)

		return true, nil
	}

	if !quiet {
		_, err = io.WriteString(out, formatted)
	}

	return changed, err
}
