package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/shengyanli1982/pystruct"
)

func main() {
	os.Exit(exitCode(run(os.Args[1:], os.Stdout, os.Stderr), os.Stderr))
}

// exitCode 将错误写入 stderr 并返回进程退出码
// 用法错误返回 2, 其他错误返回 1
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// usageError 表示命令行用法错误, 退出码为 2
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }
func (e *usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// config 保存一次调用解析得到的全部标志
type config struct {
	format  string
	offset  int
	output  string
	strict  bool
	verbose bool
	args    []string
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return usagef("subcommand required")
	}

	subcommand := args[0]
	switch subcommand {
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	case "calcsize", "pack", "unpack", "iter", "describe":
	default:
		printUsage(stderr)
		return usagef("unknown subcommand: %q", subcommand)
	}

	cfg, err := parseFlags(subcommand, args[1:], stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if cfg.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck
		pystruct.SetLogger(logger)
		defer pystruct.SetLogger(nil)
	}

	layout, err := pystruct.CompileWithOptions(cfg.format, &pystruct.Options{Strict: cfg.strict})
	if err != nil {
		return err
	}

	switch subcommand {
	case "calcsize":
		fmt.Fprintln(stdout, layout.Size())
		return nil
	case "pack":
		return runPack(layout, cfg, stdout)
	case "unpack":
		return runUnpack(layout, cfg, stdout)
	case "iter":
		return runIter(layout, cfg, stdout)
	default:
		return render(stdout, cfg.output, describe(layout))
	}
}

func parseFlags(subcommand string, args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	flagSet := pflag.NewFlagSet(subcommand, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.format, "format", "f", "", "format string (may also be given as the first argument)")
	flagSet.IntVar(&cfg.offset, "offset", 0, "byte offset into the input buffer")
	flagSet.StringVarP(&cfg.output, "output", "o", "json", "output encoding: json, yaml or cbor")
	flagSet.BoolVar(&cfg.strict, "strict", false, "require exactly one value per field when packing")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log compilation and cache events to stderr")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if cfg.offset < 0 {
		return nil, usagef("%s: offset must not be negative, got %d", subcommand, cfg.offset)
	}

	cfg.args = flagSet.Args()
	if cfg.format == "" {
		if len(cfg.args) == 0 {
			return nil, usagef("%s: format string required", subcommand)
		}
		cfg.format, cfg.args = cfg.args[0], cfg.args[1:]
	}
	switch cfg.output {
	case "json", "yaml", "cbor":
	default:
		return nil, usagef("unsupported output %q, expected json, yaml or cbor", cfg.output)
	}
	return cfg, nil
}

func runPack(layout *pystruct.Layout, cfg *config, stdout io.Writer) error {
	values, err := parseValues(layout, cfg.args)
	if err != nil {
		return err
	}
	buffer := make([]byte, cfg.offset+layout.Size())
	if _, err := layout.PackInto(buffer, cfg.offset, values...); err != nil {
		return err
	}
	fmt.Fprintln(stdout, hex.EncodeToString(buffer))
	return nil
}

func runUnpack(layout *pystruct.Layout, cfg *config, stdout io.Writer) error {
	buffer, err := readHex(cfg.args)
	if err != nil {
		return err
	}
	values, err := layout.UnpackFrom(buffer, cfg.offset)
	if err != nil {
		return err
	}
	return render(stdout, cfg.output, values)
}

func runIter(layout *pystruct.Layout, cfg *config, stdout io.Writer) error {
	buffer, err := readHex(cfg.args)
	if err != nil {
		return err
	}
	it := layout.Iter(buffer, cfg.offset)
	records := make([][]any, 0, it.Remaining())
	for it.Next() {
		records = append(records, it.Values())
	}
	if err := it.Err(); err != nil {
		return err
	}
	return render(stdout, cfg.output, records)
}

// readHex 将剩余参数拼接后按十六进制解码, 允许空白和 0x 前缀
func readHex(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, usagef("hex input required")
	}
	text := strings.Join(args, "")
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	text = strings.Join(strings.Fields(text), "")
	buffer, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decoding hex input: %w", err)
	}
	return buffer, nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: pystruct <subcommand> [flags] FORMAT [ARGS...]

Subcommands:
  calcsize FORMAT            Print the byte size of the layout
  pack FORMAT VALUES...      Pack one value per field, print hex
  unpack FORMAT HEX          Unpack one record from hex input
  iter FORMAT HEX            Unpack every full record from hex input
  describe FORMAT            Print the compiled fields

Flags:
  -f, --format string   format string (instead of the first argument)
      --offset int      byte offset into the buffer
  -o, --output string   json, yaml or cbor (default "json")
      --strict          require exactly one value per field when packing
  -v, --verbose         log compilation and cache events to stderr

Examples:
  pystruct calcsize '@cQ'
  pystruct pack '<hI' -- -2 7
  pystruct unpack '<4.16s' 31003dd825dd3300
`)
}
