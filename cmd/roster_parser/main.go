// Command roster_parser analyzes airline crew-trip roster files.
//
// Usage:
//
//	roster_parser analyze jan.txt feb.txt --month 1 --year 2026 --base ATL
//	roster_parser calendar jan.txt --month 1 --year 2026
//	roster_parser trace jan.txt --verbose
//	roster_parser coverage jan.txt feb.txt --top 5
//	roster_parser runs --archive runs.db
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"roster_parser/internal/config"
	"roster_parser/internal/logger"
)

// CLI is the kong command tree.
type CLI struct {
	Debug   bool   `help:"Enable debug logging to stderr."`
	LogDir  string `help:"Directory for the rotating log file." type:"path" env:"LOG_DIR"`
	EnvFile string `help:"Environment file to load." default:".env" type:"path"`

	Analyze  AnalyzeCmd  `cmd:"" help:"Analyze roster files and print a JSON report per file."`
	Calendar CalendarCmd `cmd:"" help:"Print pilots on duty per date."`
	Trace    TraceCmd    `cmd:"" help:"Show which line parser matched each line."`
	Coverage CoverageCmd `cmd:"" help:"Summarise recognised lines and group unparsed lines into templates."`
	Runs     RunsCmd     `cmd:"" help:"List archived runs."`
}

// App is bound into every command's Run method.
type App struct {
	Config config.Config
	Out    io.Writer
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("roster_parser"),
		kong.Description("Crew-trip roster parsing and metrics."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logDir := cli.LogDir
	if logDir == "" {
		logDir = cfg.LogDir
	}
	if err := logger.Init(logger.Config{Debug: cli.Debug || cfg.Debug, Dir: logDir, Prefix: "roster_parser"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(&App{Config: cfg, Out: os.Stdout}); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
