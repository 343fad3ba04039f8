package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/pdf"
)

type textDoc struct{}

func (textDoc) ExtractText(_ context.Context, data []byte) (string, error) {
	return string(data), nil
}

func (textDoc) RenderPage(context.Context, []byte, int, float64) (*pdf.Page, error) {
	return &pdf.Page{}, nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestRunListsRegions(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"PHP-2.pdf": "Current Address: Berlin, Germany. Statistician",
		"PHP-1.pdf": "Current Address: Zurich. Trade economist, trade policy",
		"notes.txt": "ignored",
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, textDoc{}, log, options{dir: dir, window: 1500, region: "All"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"PHP-1", "Switzerland", "0"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"PHP-2", "Europe", "0"}, strings.Fields(lines[2]))

	out.Reset()
	require.NoError(t, run(context.Background(), &out, textDoc{}, log,
		options{dir: dir, window: 1500, keywords: "trade", region: "Switzerland"}))
	require.Contains(t, out.String(), `Filtering by Region: Switzerland & Keywords: "trade" - 1 matches`)
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{"PHP-1", "Switzerland", "2"}, strings.Fields(lines[1]))
}

func TestRunErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	empty := t.TempDir()

	require.Error(t, run(context.Background(), io.Discard, textDoc{}, log, options{dir: empty, region: "All"}))
	require.Error(t, run(context.Background(), io.Discard, textDoc{}, log, options{dir: empty, region: "Mars"}))
	require.Error(t, run(context.Background(), io.Discard, textDoc{}, log, options{dir: filepath.Join(empty, "missing"), region: "All"}))
}
