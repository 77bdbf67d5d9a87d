package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshinlather/image-to-excel-converter/internal/app"
	"github.com/oshinlather/image-to-excel-converter/internal/config"
	"github.com/oshinlather/image-to-excel-converter/internal/exporter"
	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/services"
	"github.com/oshinlather/image-to-excel-converter/internal/validation"
)

// inputList collects repeated -in flags
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	if v = strings.TrimSpace(v); v == "" {
		return errors.New("empty input path")
	}
	*l = append(*l, v)
	return nil
}

// options are the parsed command line flags
type options struct {
	inputs    inputList
	engine    string
	strategy  string
	columns   []string
	delimiter string
	outDir    string
	base      string
	format    string
	metadata  bool
	language  string
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	var (
		opts    options
		columns string
	)
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.Var(&opts.inputs, "in", "input file (.txt, .json, .pdf or an image); repeat for several files")
	fs.StringVar(&opts.engine, "engine", "", "recognition engine: ocr, pdf, vision or text (default: chosen from the file)")
	fs.StringVar(&opts.strategy, "strategy", "auto", "column strategy: auto, single_column, single_cell, declared or manual")
	fs.StringVar(&columns, "columns", "", "comma separated column names for the manual strategy")
	fs.StringVar(&opts.delimiter, "delimiter", cfg.Inference.Delimiter, "cell delimiter (default: runs of whitespace)")
	fs.StringVar(&opts.outDir, "out", cfg.Export.OutputDir, "output directory")
	fs.StringVar(&opts.base, "base", "", "output base name (default: the input file name)")
	fs.StringVar(&opts.format, "format", "xlsx", "output format: xlsx or csv")
	fs.BoolVar(&opts.metadata, "metadata", cfg.Export.IncludeMetadata, "add a Metadata sheet to xlsx output")
	fs.StringVar(&opts.language, "lang", cfg.Recognition.Language, "OCR language, e.g. eng or eng+hin")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if len(opts.inputs) == 0 {
		opts.inputs = append(opts.inputs, fs.Args()...)
	}
	if len(opts.inputs) == 0 {
		return options{}, errors.New("at least one -in file is required")
	}
	if _, err := exporter.ParseFormat(opts.format); err != nil {
		return options{}, err
	}
	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			opts.columns = append(opts.columns, c)
		}
	}
	return opts, nil
}

// baseName picks the output base for one input. An explicit -base is
// suffixed with the input stem when several files share it.
func baseName(opts options, input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	switch {
	case opts.base == "":
		return stem
	case len(opts.inputs) > 1:
		return opts.base + "_" + stem
	}
	return opts.base
}

// outputBases resolves the base name of every input. Inputs that would share
// a base, such as a/inv.txt and b/inv.txt, get their 1-based position appended
// so concurrent conversions never write the same file.
func outputBases(opts options) []string {
	bases := make([]string, len(opts.inputs))
	seen := make(map[string]int, len(opts.inputs))
	for i, input := range opts.inputs {
		bases[i] = baseName(opts, input)
		seen[bases[i]]++
	}
	for i, b := range bases {
		if seen[b] > 1 {
			bases[i] = fmt.Sprintf("%s_%d", b, i+1)
		}
	}
	return bases
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
	}
	return http.DetectContentType(data)
}

// converter runs one input through recognition, inference and export
type converter struct {
	service   *services.ConverterService
	validator *validation.FileValidator
	opts      options
	sheetName string
	maxBytes  int64
	logger    *slog.Logger
}

func (c *converter) convert(ctx context.Context, input, base string) (string, error) {
	data, err := readInput(input, c.maxBytes)
	if err != nil {
		return "", err
	}

	session, err := c.service.CreateSession(ctx, filepath.Base(input))
	if err != nil {
		return "", err
	}
	defer func() { _ = c.service.DeleteSession(ctx, session.ID) }()

	resp, err := c.service.Recognize(ctx, session.ID, services.RecognizeInput{
		Source: recognition.Source{
			Name:        filepath.Base(input),
			ContentType: contentType(input, data),
			Data:        data,
			Language:    c.opts.language,
		},
		Engine:    c.opts.engine,
		Strategy:  c.opts.strategy,
		Columns:   c.opts.columns,
		Delimiter: c.opts.delimiter,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}

	doc, err := c.service.Export(ctx, session.ID, c.opts.format, c.opts.metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}
	doc.Filename = exporter.Filename(base, time.Now(), c.opts.format)

	out := filepath.Join(c.opts.outDir, doc.Filename)
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	if err := c.validator.ValidateExport(out, c.sheetName); err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "converted",
		slog.String("input", input),
		slog.String("output", out),
		slog.String("engine", resp.Report.Engine),
		slog.String("strategy", resp.Report.Strategy),
		slog.Int("rows", len(resp.Session.Table.Rows)),
		slog.Int("columns", len(resp.Session.Table.Columns)),
		slog.Float64("grand_total", resp.Session.Summary.GrandTotal))
	return out, nil
}

func readInput(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return recognition.ReadAll(f, limit)
}

func run(ctx context.Context, args []string, stdout io.Writer, cfg *config.Config, logger *slog.Logger) error {
	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	validator := validation.NewFileValidator(logger)
	for _, input := range opts.inputs {
		if err := validator.ValidateInputFile(input, cfg.Server.MaxUploadBytes); err != nil {
			return err
		}
	}
	if err := validator.ValidateOutputDirectory(opts.outDir); err != nil {
		return err
	}

	service := services.NewConverterService(services.ConverterDeps{
		Store:       services.NewSessionStore(len(opts.inputs)),
		Recognizers: app.NewRecognizers(cfg.Recognition, logger),
		Exporter:    exporter.New(cfg.Export.SheetName, cfg.Export.BaseName, logger),
		Logger:      logger,
	}, services.ConverterOptions{
		Inference: app.InferenceOptions(cfg.Inference),
		Language:  opts.language,
	})
	c := &converter{
		service:   service,
		validator: validator,
		opts:      opts,
		sheetName: cfg.Export.SheetName,
		maxBytes:  cfg.Server.MaxUploadBytes,
		logger:    logger,
	}

	var (
		mu      sync.Mutex
		bases   = outputBases(opts)
		outputs = make([]string, len(opts.inputs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, input := range opts.inputs {
		g.Go(func() error {
			out, err := c.convert(gctx, input, bases[i])
			if err != nil {
				return err
			}
			mu.Lock()
			outputs[i] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, out := range outputs {
		fmt.Fprintln(stdout, out)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	// logs go to stderr so stdout carries only the written paths
	logger := infrastructure.NewJSONLogger(os.Stderr, infrastructure.ParseLogLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cfg, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Conversion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
