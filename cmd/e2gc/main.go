package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"e2gc/internal/config"
	"e2gc/internal/export"
	appLog "e2gc/internal/log"
	"e2gc/internal/pipeline"
	"e2gc/internal/web"
)

const previewRows = 3

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	format     string
	outDir     string
	listen     string
	serve      bool
	debug      bool
	input      string
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	input := conf.Input
	if flags.input != "" {
		input = flags.input
	}
	if flags.outDir != "" {
		conf.OutputDir = flags.outDir
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Debug("effective config",
		"input", input,
		"output_dir", conf.OutputDir,
		"default_format", conf.DefaultFormat,
		"columns", conf.Columns,
		"serve", flags.serve,
	)

	if flags.serve {
		os.Exit(serve(conf, input))
	}
	os.Exit(convert(conf, input, flags.format))
}

func serve(conf *config.Config, input string) int {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := web.NewServer(conf, input).Run(ctx); err != nil {
		appLog.Error("server stopped", err)
		return 1
	}
	appLog.Info("e2gc exiting")
	return 0
}

func convert(conf *config.Config, input, formatFlag string) int {
	batch, err := pipeline.Convert(input, pipeline.Columns(conf.Columns), appLog.Default())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Error("input file not found", err, "path", input)
		} else {
			appLog.Error("failed to read input", err, "path", input)
		}
		return 1
	}

	fmt.Printf("%d Termine gelesen, %d Zeilen übersprungen.\n", batch.Len(), batch.Skipped)
	if batch.Empty() {
		fmt.Println("Keine Termine konnten konvertiert werden!")
		return 1
	}

	format, err := chooseFormat(formatFlag, conf.DefaultFormat)
	if err != nil {
		appLog.Error("no output format", err)
		return 1
	}

	out := export.OutputPath(input, conf.OutputDir, format)
	opts := export.ICSOptions{
		ProductID:    conf.Calendar.ProductID,
		CalendarName: conf.Calendar.Name,
	}
	if err := export.WriteFile(out, format, batch, opts); err != nil {
		appLog.Error("export failed", err, "path", out, "format", string(format))
		return 1
	}

	fmt.Println()
	fmt.Println("Konvertierung erfolgreich!")
	fmt.Printf("Ausgabedatei: %s\n", out)
	fmt.Printf("Anzahl konvertierte Termine: %d\n", batch.Len())
	fmt.Printf("\nErste %d konvertierte Einträge:\n", min(previewRows, batch.Len()))
	if err := writePreview(os.Stdout, batch, previewRows); err != nil {
		appLog.Error("preview failed", err)
	}
	return 0
}

// chooseFormat prefers the -format flag, then the configured default, and
// only then asks on stdin.
func chooseFormat(flagValue, configured string) (export.Format, error) {
	for _, v := range []string{flagValue, configured} {
		if v == "" {
			continue
		}
		return export.ParseFormat(v)
	}
	return promptFormat(os.Stdin, os.Stdout)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to YAML config file (created with defaults if missing)")
	flag.StringVar(&cfg.format, "format", "", "Output format: csv|ics (or 1|2); prompts when empty")
	flag.StringVar(&cfg.outDir, "out", "", "Output directory (default: next to the input file)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address for -serve (overrides config if set)")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the converted schedule over HTTP instead of writing a file")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [input.xlsx|input.csv]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	cfg.input = flag.Arg(0)

	return cfg
}
