package textextractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/core"
)

var (
	ErrExtraction         = errors.New("text extraction failed")
	ErrEmptyDocument      = fmt.Errorf("%w: empty document", ErrExtraction)
	ErrUnreadableDocument = fmt.Errorf("%w: unreadable pdf", ErrExtraction)
	ErrNoPages            = fmt.Errorf("%w: pdf has no pages", ErrExtraction)
)

var _ core.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor implements core.TextExtractor for PDF reports.
// pdfcpu validates the file and counts pages; docconv converts it to text.
type PDFExtractor struct {
	logger    arbor.ILogger
	tempDir   string
	pageCount func(path string) (int, error)
	convert   func(r io.Reader) (string, error)
}

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithTempDir sets where report bytes are spooled during extraction.
func WithTempDir(dir string) Option {
	return func(e *PDFExtractor) {
		e.tempDir = dir
	}
}

// WithPageCounter replaces the pdfcpu page counter.
func WithPageCounter(fn func(path string) (int, error)) Option {
	return func(e *PDFExtractor) {
		e.pageCount = fn
	}
}

// WithConverter replaces the docconv text converter.
func WithConverter(fn func(r io.Reader) (string, error)) Option {
	return func(e *PDFExtractor) {
		e.convert = fn
	}
}

func NewPDFExtractor(logger arbor.ILogger, opts ...Option) *PDFExtractor {
	e := &PDFExtractor{
		logger:    logger,
		tempDir:   os.TempDir(),
		pageCount: pdfcpuPageCount,
		convert:   docconvPDF,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText spools data to a temporary file, extracts its text and removes
// the file again on every path out.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	f, err := os.CreateTemp(e.tempDir, "report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return e.ExtractFile(ctx, path)
}

// ExtractFile extracts the text of the PDF at path, pages concatenated in order.
func (e *PDFExtractor) ExtractFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pages, err := e.pageCount(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	if pages == 0 {
		return "", ErrNoPages
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	text, err := e.convert(f)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// pdftotext separates pages with form feeds.
	text = strings.ReplaceAll(text, "\f", "")

	e.logger.Debug().
		Int("pages", pages).
		Int("text_length", len(text)).
		Msg("Extracted report text")

	return text, nil
}

func pdfcpuPageCount(path string) (int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

func docconvPDF(r io.Reader) (string, error) {
	body, _, err := docconv.ConvertPDF(r)
	if err != nil {
		return "", err
	}
	return body, nil
}
