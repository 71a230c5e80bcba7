// Package extract loads documents from disk or HTTP and extracts their plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedType is returned for content that is neither PDF nor text.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("no extractable text")
	// ErrTooLarge is returned when a document exceeds the configured size limit.
	ErrTooLarge = errors.New("document exceeds size limit")
)

// Document is extracted text with its source identifier.
type Document struct {
	Source string
	Text   string
}

// Failure describes one document that could not be loaded.
type Failure struct {
	Index  int
	Source string
	Reason string
	Err    error
}

// Config tunes a Loader.
type Config struct {
	Timeout     time.Duration
	Concurrency int
	MaxBytes    int64
	Client      *http.Client
	Logger      zerolog.Logger
}

// Loader fetches and extracts documents.
type Loader struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	maxBytes    int64
	logger      zerolog.Logger
}

// NewLoader builds a Loader.
func NewLoader(cfg Config) *Loader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 << 20
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Loader{
		client:      client,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		maxBytes:    cfg.MaxBytes,
		logger:      cfg.Logger.With().Str("component", "document_loader").Logger(),
	}
}

// Load reads one source. http(s) sources are downloaded, anything else is read from disk.
func (l *Loader) Load(ctx context.Context, source string) (Document, error) {
	source = strings.TrimSpace(source)
	var (
		raw []byte
		err error
	)
	if isURL(source) {
		raw, err = l.download(ctx, source)
	} else {
		raw, err = l.readFile(source)
	}
	if err != nil {
		return Document{}, err
	}

	text, err := Text(raw)
	if err != nil {
		return Document{}, fmt.Errorf("extract %s: %w", source, err)
	}
	return Document{Source: source, Text: text}, nil
}

// LoadAll loads sources concurrently. The returned documents keep input order; failed entries are
// left zero-valued and reported in the failure list, which is ordered by index.
func (l *Loader) LoadAll(ctx context.Context, sources []string) ([]Document, []Failure) {
	docs := make([]Document, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, source := range sources {
		g.Go(func() error {
			doc, err := l.Load(gctx, source)
			if err != nil {
				errs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, err := range errs {
		if err == nil {
			continue
		}
		l.logger.Warn().Err(err).Int("index", i).Str("source", sources[i]).Msg("document excluded")
		failures = append(failures, Failure{Index: i, Source: sources[i], Reason: err.Error(), Err: err})
	}
	return docs, failures
}

// Text extracts plain text from PDF or text content.
func Text(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ErrNoText
	}
	mtype := mimetype.Detect(raw)
	switch {
	case mtype.Is("application/pdf"):
		return pdfText(raw)
	case strings.HasPrefix(mtype.String(), "text/"):
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}
}

func pdfText(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoText
	}
	return b.String(), nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status code %d", url, resp.StatusCode)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > l.maxBytes {
		return nil, ErrTooLarge
	}
	return raw, nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
