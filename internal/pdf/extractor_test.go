package pdf

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

func TestExtractTextRejectsEmptyDocument(t *testing.T) {
	_, err := NewExtractor().ExtractText(context.Background(), nil)
	require.Error(t, err)
}

func TestExtractTextRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().ExtractText(context.Background(), []byte("definitely not a pdf"))
	require.Error(t, err)
}

func TestRenderPageRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().RenderPage(context.Background(), []byte("%PDF-broken"), 0, 1)
	require.Error(t, err)
}

func TestGroupSpans(t *testing.T) {
	texts := []pdf.Text{
		{S: "C", X: 10, Y: 700, W: 6, FontSize: 10},
		{S: "V", X: 16, Y: 700, W: 6, FontSize: 10},
		{S: "G", X: 25, Y: 700, W: 6, FontSize: 10},
		{S: "o", X: 31, Y: 700, W: 6, FontSize: 10},
		{S: "N", X: 10, Y: 680, W: 6, FontSize: 12},
		{S: "", X: 16, Y: 680, W: 0, FontSize: 12},
		{S: "far", X: 200, Y: 680, W: 18, FontSize: 12},
	}

	got := groupSpans(texts)
	require.Len(t, got, 3)
	require.Equal(t, "CV Go", got[0].Text)
	require.Equal(t, 10.0, got[0].X)
	require.Equal(t, 27.0, got[0].Width)
	require.Equal(t, "N", got[1].Text)
	require.Equal(t, "far", got[2].Text)
}

func TestGroupSpansDropsBlankRuns(t *testing.T) {
	got := groupSpans([]pdf.Text{{S: " ", X: 0, Y: 0, W: 3, FontSize: 10}})
	require.Empty(t, got)
}
