package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/slip-scanner/internal/api"
	"github.com/insightdelivered/slip-scanner/internal/config"
	"github.com/insightdelivered/slip-scanner/internal/extractor"
	"github.com/insightdelivered/slip-scanner/internal/logger"
	"github.com/insightdelivered/slip-scanner/internal/models"
	"github.com/insightdelivered/slip-scanner/internal/parser"
	"github.com/insightdelivered/slip-scanner/internal/queue"
	"github.com/insightdelivered/slip-scanner/internal/service"
	"github.com/insightdelivered/slip-scanner/internal/store"
	"github.com/insightdelivered/slip-scanner/internal/writer"
)

const version = "1.0.0"

const usageText = `Thai bank slip scanner
by Insight Delivered

Reads transfer slips, card statements and quick-entry sentences and turns
them into categorized transactions.

Usage:
  slipscan <command> [flags] [args]

Commands:
  scan      Extract transactions from slip images, PDFs or .txt OCR dumps
  parse     Turn a sentence like "กินข้าว 60 บาท" into a transaction
  serve     Run the HTTP API (and the queue worker when AMQP_URL is set)
  worker    Consume scan jobs from AMQP and store the results
  enqueue   Recognize files locally and publish them as scan jobs
  import    Load a CSV backup into the store
  export    Write every stored transaction to a CSV backup
  version   Print version and exit

Examples:
  slipscan scan slip1.png slip2.jpg
  slipscan scan -bank=krungsri -output=december.csv statement.pdf
  slipscan parse "เงินเดือนเข้า 20000"
  DATA_BACKEND=sqlite slipscan serve

Run "slipscan <command> -h" for command flags. Settings such as PORT,
DATA_BACKEND, AMQP_URL and OCR_LANGUAGES come from the environment or .env.
`

func main() {
	// .env is optional
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(0)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "version", "-version", "--version":
		fmt.Printf("slipscan v%s\n", version)
		return
	case "help", "-h", "-help", "--help":
		fmt.Fprint(os.Stderr, usageText)
		return
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatalf("Configuration error: %v\n", err)
	}

	server := cmd == "serve" || cmd == "worker"
	log := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON && server})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var err error
	switch cmd {
	case "scan":
		err = runScan(ctx, cfg, log, args)
	case "parse":
		err = runParse(ctx, cfg, log, args)
	case "serve":
		err = runServe(ctx, cfg, log, args)
	case "worker":
		err = runWorker(ctx, cfg, log)
	case "enqueue":
		err = runEnqueue(ctx, cfg, log, args)
	case "import":
		err = runImport(ctx, cfg, log, args)
	case "export":
		err = runExport(ctx, cfg, log, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}
	if err != nil {
		stop()
		fatalf("Error: %v\n", err)
	}
}

// app holds what every command needs.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	repo store.Repository
	svc  *service.ScanService
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, prefsFile string) (*app, error) {
	classifier := parser.DefaultClassifier()
	if cfg.TaxonomyFile != "" {
		rules, err := loadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			return nil, err
		}
		classifier = parser.NewClassifier(rules)
		log.Info().Str("file", cfg.TaxonomyFile).Int("categories", len(rules)).Msg("loaded taxonomy")
	}

	repo, err := store.Open(cfg.DataBackend, cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DataBackend, err)
	}

	a := &app{
		cfg:  cfg,
		log:  log,
		repo: repo,
		svc:  service.New(repo, parser.NewScanner(classifier), log),
	}

	if prefsFile != "" {
		if err := a.importPreferences(ctx, prefsFile); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

func (a *app) ocrOptions(progress bool) extractor.OCROptions {
	opts := extractor.OCROptions{Languages: a.cfg.OCRLanguages, Timeout: a.cfg.OCRTimeout}
	if progress {
		opts.Progress = func(done, total int) {
			if total > 1 && done > 0 {
				fmt.Printf("  OCR page %d/%d\n", done, total)
			}
		}
	}
	return opts
}

func loadTaxonomy(path string) ([]parser.CategoryRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()
	return parser.LoadTaxonomy(f)
}

func (a *app) importPreferences(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		a.log.Debug().Str("file", path).Msg("no preferences file yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	defer f.Close()

	prefs, err := parser.LoadPreferences(f)
	if err != nil {
		return err
	}
	if err := a.svc.ImportPreferences(ctx, prefs); err != nil {
		return err
	}
	a.log.Info().Str("file", path).Int("receivers", len(prefs)).Msg("loaded preferences")
	return nil
}

// savePreferences writes the learned snapshot back so the memory backend
// keeps what it learned between runs.
func (a *app) savePreferences(ctx context.Context, path string) error {
	prefs, err := a.svc.Preferences(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preferences file: %w", err)
	}
	if err := parser.SavePreferences(f, prefs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runScan(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	bankFlag := fs.String("bank", "", "Bank hint used when detection fails: kbank, scb, krungthai, bbl, krungsri")
	typeFlag := fs.String("type", "expense", "Direction for single slips: income or expense")
	outputFlag := fs.String("output", "", "Output CSV file (defaults to each input's name with .csv; one combined file when set)")
	headerFlag := fs.Bool("header", true, "Include # metadata rows in CSV")
	bomFlag := fs.Bool("bom", true, "Start CSV with a UTF-8 BOM for spreadsheet apps")
	prefsFlag := fs.String("prefs", cfg.PreferencesFile, "YAML file of learned receiver categories")
	saveFlag := fs.Bool("save", true, "Store results so later slips are checked for duplicates")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input files")
	}

	bank, ok := parser.ParseBankType(*bankFlag)
	if !ok {
		return fmt.Errorf("unknown bank %q, supported: kbank, scb, krungthai, bbl, krungsri", *bankFlag)
	}
	dir := models.Direction(*typeFlag)
	if dir != models.Income && dir != models.Expense {
		return fmt.Errorf("unknown type %q, use income or expense", *typeFlag)
	}

	a, err := newApp(ctx, cfg, log, *prefsFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	req := service.ScanRequest{BankHint: bank, Direction: dir, Save: *saveFlag}
	w := &writer.CSVWriter{IncludeHeader: *headerFlag, BOM: *bomFlag}

	// documents go through the pipeline one at a time
	var combined []models.Transaction
	for _, inputPath := range fs.Args() {
		res, err := a.processFile(ctx, inputPath, req)
		if err != nil {
			return fmt.Errorf("processing %s: %w", inputPath, err)
		}

		if *outputFlag != "" {
			combined = append(combined, res.Transactions...)
			continue
		}
		outPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
		if err := w.WriteToFile(outPath, res.Transactions, writer.Metadata{Source: filepath.Base(inputPath), Bank: res.Bank}); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
		fmt.Printf("  Output: %s\n", outPath)
	}

	if *outputFlag != "" {
		if err := w.WriteToFile(*outputFlag, combined, writer.Metadata{Source: strings.Join(fs.Args(), " ")}); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
		fmt.Printf("Output: %s (%d transaction(s))\n", *outputFlag, len(combined))
	}
	return nil
}

func (a *app) processFile(ctx context.Context, inputPath string, req service.ScanRequest) (models.ScanResult, error) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return models.ScanResult{}, fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	text, err := extractor.Extract(ctx, inputPath, a.ocrOptions(true))
	if err != nil {
		return models.ScanResult{}, err
	}

	res, err := a.svc.ScanText(ctx, text, req)
	if err != nil {
		return res, err
	}

	fmt.Printf("  Bank: %s\n", res.Bank)
	if res.Multi {
		fmt.Printf("  Statement with %d item(s)\n", len(res.Transactions))
	}
	for _, tx := range res.Transactions {
		fmt.Printf("  %s  %12s  %-20s  %s\n", tx.Date, tx.Amount.StringFixed(2), tx.Category, tx.Note)
	}
	if len(res.Transactions) == 1 && res.Transactions[0].Amount.IsZero() {
		fmt.Println("  Warning: no amount found. Check the slip image quality.")
	}
	return res, nil
}

func runParse(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	saveFlag := fs.Bool("save", false, "Store the parsed transaction")
	fs.Parse(args)

	sentence := strings.Join(fs.Args(), " ")
	if sentence == "" {
		return errors.New(`usage: slipscan parse "กินข้าว 60 บาท"`)
	}

	a, err := newApp(ctx, cfg, log, cfg.PreferencesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	tx, err := a.svc.Entry(ctx, sentence, *saveFlag)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tx)
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	portFlag := fs.String("port", cfg.Port, "HTTP port")
	staticFlag := fs.String("static", "", "Directory of web client files to serve")
	fs.Parse(args)

	a, err := newApp(ctx, cfg, log, cfg.PreferencesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.QueueEnabled() {
		client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		if err != nil {
			return err
		}
		defer client.Close()
		a.svc.WithPublisher(client)

		g.Go(func() error {
			return ignoreCanceled(client.Consume(ctx, cfg.WorkerPrefetch, a.svc.HandleJob))
		})
	} else {
		log.Info().Msg("scan queue disabled - no AMQP_URL provided")
	}

	h := &api.Handler{
		Service:   a.svc,
		OCR:       a.ocrOptions(false),
		StaticDir: *staticFlag,
		Log:       log,
	}
	srv := h.NewApp()

	g.Go(func() error {
		log.Info().Str("port", *portFlag).Str("backend", cfg.DataBackend).Msg("starting HTTP server")
		return srv.Listen(":" + *portFlag)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return srv.ShutdownWithTimeout(10 * time.Second)
	})

	err = g.Wait()
	if cfg.PreferencesFile != "" {
		if perr := a.savePreferences(context.Background(), cfg.PreferencesFile); perr != nil {
			log.Error().Err(perr).Msg("failed to save preferences")
		}
	}
	return ignoreCanceled(err)
}

func runWorker(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if !cfg.QueueEnabled() {
		return errors.New("AMQP_URL is required for the worker")
	}

	a, err := newApp(ctx, cfg, log, cfg.PreferencesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info().Str("backend", cfg.DataBackend).Msg("starting scan worker")
	return ignoreCanceled(client.Consume(ctx, cfg.WorkerPrefetch, a.svc.HandleJob))
}

func runEnqueue(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	bankFlag := fs.String("bank", "", "Bank hint attached to every job")
	fs.Parse(args)

	if !cfg.QueueEnabled() {
		return errors.New("AMQP_URL is required to enqueue jobs")
	}
	if _, ok := parser.ParseBankType(*bankFlag); !ok {
		return fmt.Errorf("unknown bank %q", *bankFlag)
	}

	a, err := newApp(ctx, cfg, log, "")
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		return err
	}
	defer client.Close()
	a.svc.WithPublisher(client)

	for _, inputPath := range fs.Args() {
		text, err := extractor.Extract(ctx, inputPath, a.ocrOptions(true))
		if err != nil {
			return fmt.Errorf("processing %s: %w", inputPath, err)
		}
		job, err := a.svc.Enqueue(ctx, filepath.Base(inputPath), text, *bankFlag)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", inputPath, err)
		}
		fmt.Printf("Queued %s as job %s\n", inputPath, job.ID)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.Parse(args)

	a, err := newApp(ctx, cfg, log, "")
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		txs, err := writer.ReadCSV(f, writer.ReadOptions{Now: time.Now()})
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := a.svc.Confirm(ctx, txs...); err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Printf("Imported %d transaction(s) from %s\n", len(txs), path)
	}
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outputFlag := fs.String("output", "slipscan_backup.csv", "Output CSV file")
	bomFlag := fs.Bool("bom", true, "Start CSV with a UTF-8 BOM for spreadsheet apps")
	fs.Parse(args)

	a, err := newApp(ctx, cfg, log, "")
	if err != nil {
		return err
	}
	defer a.Close()

	txs, err := a.svc.Transactions(ctx)
	if err != nil {
		return err
	}
	w := &writer.CSVWriter{BOM: *bomFlag}
	if err := w.WriteToFile(*outputFlag, txs, writer.Metadata{}); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	fmt.Printf("Output: %s (%d transaction(s))\n", *outputFlag, len(txs))
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
