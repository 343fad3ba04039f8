package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/phpscreening/screener/internal/archive"
	"github.com/phpscreening/screener/internal/config"
	"github.com/phpscreening/screener/internal/logger"
	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/pdf"
	"github.com/phpscreening/screener/internal/screening"
	"github.com/phpscreening/screener/internal/storage"
)

type options struct {
	dir      string
	window   int
	id       string
	keywords string
	region   string
}

func main() {
	log := logger.NewStderr("classify")
	cfg, err := config.LoadClassify()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	var opts options
	pflag.StringVarP(&opts.dir, "dir", "d", ".", "Directory containing candidate PDFs")
	pflag.IntVarP(&opts.window, "window", "w", cfg.ClassifyWindow, "Leading characters handed to the region classifier")
	pflag.StringVar(&opts.id, "id", "", "Only list candidates whose id contains this substring")
	pflag.StringVarP(&opts.keywords, "keywords", "k", "", "Keywords to count, separated by spaces or commas")
	pflag.StringVarP(&opts.region, "region", "r", string(models.RegionAll), "Only list candidates in this region")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Stdout, pdf.NewExtractor(), log, opts); err != nil {
		log.Error("classify", slog.Any("err", err))
		os.Exit(1)
	}
}

// run extracts and classifies every PDF in opts.dir and prints the rows that
// pass the filters as id, region and keyword hits.
func run(ctx context.Context, out io.Writer, doc screening.Document, log *slog.Logger, opts options) error {
	selected, err := models.ParseRegionFilter(opts.region)
	if err != nil {
		return err
	}

	files, err := readPDFs(opts.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no pdf files in %s", opts.dir)
	}

	session := screening.NewSession(doc, storage.NewMemory(), archive.Zip{}, log,
		screening.WithClassifyWindow(opts.window))
	res := session.Ingest(ctx, files)
	for _, id := range res.Added {
		if err := ctx.Err(); err != nil {
			return err
		}
		session.ExtractOne(ctx, id)
	}
	session.SetFilters(opts.id, opts.keywords, selected)

	view := session.List()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREGION\tHITS")
	for _, item := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", item.ID, item.Region, item.Matches)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if view.FilterInfo != "" {
		fmt.Fprintln(out, view.FilterInfo)
	}
	log.Info("classified directory",
		slog.String("dir", opts.dir),
		slog.Int("files", len(res.Added)),
		slog.Int("listed", len(view.Items)),
	)
	return nil
}

func readPDFs(dir string) ([]screening.UploadedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]screening.UploadedFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		files = append(files, screening.UploadedFile{Name: name, ContentType: "application/pdf", Data: data})
	}
	return files, nil
}
