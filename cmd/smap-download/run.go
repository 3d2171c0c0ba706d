package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	// Mirror bucket drivers, selected by URL scheme
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/alecsandermergen11/SMAP-auto-download/aoi"
	"github.com/alecsandermergen11/SMAP-auto-download/appeears"
	"github.com/alecsandermergen11/SMAP-auto-download/download"
	"github.com/alecsandermergen11/SMAP-auto-download/metrics"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/monitor"
	"github.com/alecsandermergen11/SMAP-auto-download/ui"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

const usernameEnv = "APPEEARS_USERNAME"
const passwordEnv = "APPEEARS_PASSWORD"

var runFlags = []cli.Flag{
	cli.StringSliceFlag{Name: "aoi", Usage: "area of interest (shapefile name without extension); repeatable"},
	cli.StringFlag{Name: "start", Usage: "first date, YYYY-MM-DD"},
	cli.StringFlag{Name: "end", Usage: "last date, YYYY-MM-DD"},
	cli.StringSliceFlag{Name: "product", Usage: "catalog product name; repeatable"},
	cli.BoolFlag{Name: "yes, y", Usage: "start without asking for confirmation"},
}

var newPrompterFunc = func() ui.Prompter { return ui.Terminal{} }
var newProgressFunc = func() ui.Progress { return ui.Bars{} }

// runPlan is what the user asked for.
type runPlan struct {
	AOIs     []string
	Start    time.Time
	End      time.Time
	Chunks   []model.DateChunk
	Products []string
}

func (p runPlan) String() string {
	return fmt.Sprintf("AOIs:     %s\nPeriod:   %s to %s\nChunks:   %d yearly tasks per AOI\nProducts: %s\n",
		strings.Join(p.AOIs, ", "), p.Start.Format(model.DateLayout), p.End.Format(model.DateLayout),
		len(p.Chunks), strings.Join(p.Products, ", "))
}

func runAction(c *cli.Context) error {
	logContext := &util.BasicLogContext{}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := model.LoadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	if err = setupDirectories(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompter := newPrompterFunc()
	client := appeears.NewClient(cfg)
	if err = login(ctx, client, prompter); err != nil {
		return err
	}

	paths, err := aoi.FindShapefiles(cfg.AOIDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no shapefile found in %s", cfg.AOIDir)
	}
	byName := map[string]string{}
	var names []string
	for _, path := range paths {
		byName[aoi.Name(path)] = path
		names = append(names, aoi.Name(path))
	}

	plan, err := planRun(c, prompter, names, catalog)
	if errors.Is(err, ui.ErrCancelled) || (err == nil && plan == nil) {
		util.LogInfo(logContext, "Nothing selected, exiting")
		return nil
	}
	if err != nil {
		return err
	}
	layers, err := catalog.Layers(plan.Products)
	if err != nil {
		return err
	}

	fmt.Fprint(c.App.Writer, plan.String())
	if !c.Bool("yes") {
		ok, err := prompter.Confirm("Start the run", true)
		if errors.Is(err, ui.ErrCancelled) || (err == nil && !ok) {
			util.LogInfo(logContext, "Run cancelled")
			return nil
		}
		if err != nil {
			return err
		}
	}

	var areas []*model.AreaOfInterest
	for _, name := range plan.AOIs {
		area, err := aoi.Load(logContext, byName[name])
		if err != nil {
			util.LogSimpleErr(logContext, "Skipping AOI "+name, err)
			continue
		}
		areas = append(areas, area)
	}
	if len(areas) == 0 {
		return errors.New("none of the selected AOIs could be loaded")
	}

	progress := newProgressFunc()
	downloader := download.New(cfg, client, progress, logContext)
	if cfg.MirrorBucket != "" {
		mirror, err := download.OpenMirror(ctx, cfg.MirrorBucket, cfg.OutputDir)
		if err != nil {
			return err
		}
		defer mirror.Close()
		downloader.Mirror = mirror
	}

	taskLedger, closeLedger, err := openLedger(logContext, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		util.LogInfo(logContext, "Serving metrics on "+cfg.MetricsAddr)
		go launchServerFunc(cfg.MetricsAddr, metrics.NewRouter(recorder))
	}

	mon := monitor.New(cfg, client, downloader, logContext)
	mon.Ledger = taskLedger
	mon.Metrics = recorder
	mon.Progress = progress
	summaries, err := mon.Run(ctx, areas, layers, plan.Chunks)
	for _, summary := range summaries {
		fmt.Fprintln(c.App.Writer, summary.String())
	}
	return err
}

func setupDirectories(cfg util.Config) error {
	for _, dir := range []string{cfg.AOIDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// login takes credentials from the environment, prompting for what is missing.
func login(ctx context.Context, client *appeears.Client, prompter ui.Prompter) error {
	username := os.Getenv(usernameEnv)
	password := os.Getenv(passwordEnv)
	var err error
	if username == "" {
		if username, err = prompter.Text("Earthdata username", "", required); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = prompter.Secret("Earthdata password"); err != nil {
			return err
		}
	}
	if _, err = client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// planRun fills the plan from flags, prompting for anything not given. A nil
// plan means the user selected nothing.
func planRun(c *cli.Context, prompter ui.Prompter, names []string, catalog *model.Catalog) (*runPlan, error) {
	plan := &runPlan{}
	var err error
	if plan.AOIs, err = chooseMany(prompter, "Areas of interest", names, c.StringSlice("aoi")); err != nil || len(plan.AOIs) == 0 {
		return nil, err
	}
	if plan.Start, err = chooseDate(prompter, "Start date (YYYY-MM-DD)", model.SMAPStartDate, c.String("start")); err != nil {
		return nil, err
	}
	today := time.Now().Format(model.DateLayout)
	if plan.End, err = chooseDate(prompter, "End date (YYYY-MM-DD)", today, c.String("end")); err != nil {
		return nil, err
	}
	if plan.Chunks, err = model.ChunkByYear(plan.Start, plan.End); err != nil {
		return nil, err
	}
	if plan.Products, err = chooseMany(prompter, "SMAP products", catalog.Names(), c.StringSlice("product")); err != nil || len(plan.Products) == 0 {
		return nil, err
	}
	return plan, nil
}

func chooseMany(prompter ui.Prompter, label string, items, given []string) ([]string, error) {
	if len(given) == 0 {
		return prompter.SelectMany(label, items)
	}
	for _, choice := range given {
		if !contains(items, choice) {
			return nil, fmt.Errorf("unknown choice %q, expected one of: %s", choice, strings.Join(items, ", "))
		}
	}
	return given, nil
}

func chooseDate(prompter ui.Prompter, label, defaultValue, given string) (time.Time, error) {
	if given == "" {
		var err error
		if given, err = prompter.Text(label, defaultValue, validateDate); err != nil {
			return time.Time{}, err
		}
	}
	return model.ParseDate(given)
}

func validateDate(value string) error {
	_, err := model.ParseDate(value)
	return err
}

func required(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
