package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"roster_parser/internal/analysis"
	"roster_parser/internal/coverage"
	"roster_parser/internal/extractor"
	"roster_parser/internal/logger"
	"roster_parser/internal/roster"
	"roster_parser/internal/storage"
)

// RosterFlags are the flags shared by commands that analyze a roster.
type RosterFlags struct {
	Month int    `help:"Roster month (1-12)." required:""`
	Year  int    `help:"Roster year." required:""`
	Base  string `help:"Base filter: All, ATL, BOS, NYC, DTW, SLC, MSP, SEA or LAX." default:"All"`
	Front string `help:"Front commute threshold (HH:MM, 30-minute steps)."`
	Back  string `help:"Back commute threshold (HH:MM, 30-minute steps)."`
}

func (f RosterFlags) options(app *App) (analysis.Options, error) {
	return analysis.ResolveOptions(app.Config.Thresholds, f.Base, f.Front, f.Back)
}

func (f RosterFlags) context() roster.Context {
	return roster.Context{Month: f.Month, Year: f.Year}
}

// AnalyzeCmd prints one JSON report per file.
type AnalyzeCmd struct {
	Files []string `arg:"" help:"Roster text files." type:"existingfile"`
	RosterFlags
	Pretty  bool   `help:"Indent JSON output."`
	Archive string `help:"Archive DSN (postgres:// URL or SQLite path). Defaults to ROSTER_ARCHIVE_DSN."`
}

func (cmd *AnalyzeCmd) Run(app *App) error {
	opts, err := cmd.options(app)
	if err != nil {
		return err
	}

	inputs := make([]analysis.Input, 0, len(cmd.Files))
	for _, path := range cmd.Files {
		in, err := readInput(path, cmd.context())
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	ctx := context.Background()
	reports, err := analysis.AnalyzeBatch(ctx, inputs, opts)
	if err != nil {
		return err
	}

	arch, err := openArchive(ctx, app, cmd.Archive)
	if err != nil {
		return err
	}
	defer arch.close()

	for _, report := range reports {
		if arch.enabled() {
			run, err := storage.Archive(ctx, arch.store, arch.facts, report)
			if err != nil {
				return fmt.Errorf("archive %s: %w", report.FileName, err)
			}
			logger.Info("archived run", "file", report.FileName, "run", run.ID)
		}
		if err := writeJSON(app, report, cmd.Pretty); err != nil {
			return err
		}
	}
	return nil
}

// CalendarCmd prints the staffing calendar for one file.
type CalendarCmd struct {
	File string `arg:"" help:"Roster text file." type:"existingfile"`
	RosterFlags
	JSON bool `help:"Print JSON instead of a table." name:"json"`
}

func (cmd *CalendarCmd) Run(app *App) error {
	opts, err := cmd.options(app)
	if err != nil {
		return err
	}
	in, err := readInput(cmd.File, cmd.context())
	if err != nil {
		return err
	}
	report, err := analysis.AnalyzeFile(in, opts)
	if err != nil {
		return err
	}
	cal, err := report.Calendar()
	if err != nil {
		return err
	}
	if cmd.JSON {
		return writeJSON(app, cal, true)
	}

	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPILOTS\tTRIPS")
	for _, d := range cal.Days {
		trips := make([]string, 0, len(d.Entries))
		for _, e := range d.Entries {
			trips = append(trips, e.TripNumber+"/"+e.DutyDay)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.DateString, d.PilotCount, strings.Join(trips, " "))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t(%d trips not placed)\n", cal.TotalPilotDays(), cal.Unplaced)
	return tw.Flush()
}

// TraceCmd prints the line classification of a file.
type TraceCmd struct {
	File    string `arg:"" help:"Roster text file." type:"existingfile"`
	Verbose bool   `help:"Include every parser's quick check and format attempts." short:"v"`
	JSON    bool   `help:"Print JSON instead of a table." name:"json"`
}

func (cmd *TraceCmd) Run(app *App) error {
	b, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", cmd.File, err)
	}
	traces := extractor.Trace(string(b), cmd.Verbose)
	if cmd.JSON {
		return writeJSON(app, traces, true)
	}

	for _, lt := range traces {
		fmt.Fprintf(app.Out, "%4d  %-10s %s\n", lt.Line, lt.Kind, strings.TrimSpace(lt.Text))
		for _, p := range lt.Parsers {
			status := "skip"
			switch {
			case p.Matched:
				status = "MATCH"
			case p.QuickCheck != nil && p.QuickCheck.Passed:
				status = "no match"
			}
			fmt.Fprintf(app.Out, "        %-10s %s\n", p.ParserName, status)
		}
	}
	return nil
}

// CoverageCmd reports how much of the input the line parsers recognise.
type CoverageCmd struct {
	Files []string `arg:"" help:"Roster text files." type:"existingfile"`
	Top   int      `help:"Number of filler templates to show." default:"10"`
	JSON  bool     `help:"Print JSON instead of a table." name:"json"`
}

func (cmd *CoverageCmd) Run(app *App) error {
	c := coverage.NewCollector()
	for _, path := range cmd.Files {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		c.Add(string(b))
	}
	report := c.Report(cmd.Top)
	if cmd.JSON {
		return writeJSON(app, report, true)
	}

	fmt.Fprintf(app.Out, "%d files, %d lines, %d recognised (%.2f%%)\n\n",
		report.Files, report.Lines, report.Recognised, report.RecognisedPct)
	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tLINES\tPCT")
	for _, k := range report.Kinds {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", k.Kind, k.Lines, k.Pct)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Templates) == 0 {
		return nil
	}
	fmt.Fprintln(app.Out)
	w = tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNT\tLINE\tTEMPLATE\tEXAMPLE")
	for _, t := range report.Templates {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", t.Count, t.FirstLine, t.Template, t.Examples[0])
	}
	return w.Flush()
}

// RunsCmd lists archived runs.
type RunsCmd struct {
	Archive  string `help:"Archive DSN (postgres:// URL or SQLite path). Defaults to ROSTER_ARCHIVE_DSN."`
	Limit    int    `help:"Maximum runs to list." default:"20"`
	FileName string `help:"Only runs for this file name."`
}

func (cmd *RunsCmd) Run(app *App) error {
	dsn := cmd.Archive
	if dsn == "" {
		dsn = app.Config.ArchiveDSN
	}
	if dsn == "" {
		return fmt.Errorf("no archive configured: pass --archive or set ROSTER_ARCHIVE_DSN")
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, storage.ListParams{Limit: cmd.Limit, FileName: cmd.FileName})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFILE\tMONTH\tBASE\tTRIPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%02d\t%s\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.FileName, r.Context.Year, r.Context.Month, r.BaseFilter, r.TripCount)
	}
	return tw.Flush()
}

func readInput(path string, ctx roster.Context) (analysis.Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return analysis.Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	return analysis.Input{Name: filepath.Base(path), Text: string(b), Context: ctx}, nil
}

func writeJSON(app *App, v interface{}, pretty bool) error {
	enc := json.NewEncoder(app.Out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// archive holds the optional run archive and trip-fact sink.
type archive struct {
	store storage.Store
	ch    *storage.ClickHouseDB
	facts storage.FactSink
}

func (a *archive) enabled() bool { return a.store != nil || a.facts != nil }

func (a *archive) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.ch != nil {
		_ = a.ch.Close()
	}
}

func openArchive(ctx context.Context, app *App, dsn string) (*archive, error) {
	a := &archive{}
	if dsn == "" {
		dsn = app.Config.ArchiveDSN
	}
	if dsn != "" {
		store, err := storage.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	if app.Config.ClickHouse.Enabled() {
		ch, err := storage.OpenClickHouse(ctx, app.Config.ClickHouse)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := ch.CreateSchema(ctx); err != nil {
			_ = ch.Close()
			a.close()
			return nil, err
		}
		a.ch, a.facts = ch, ch
	}
	return a, nil
}
