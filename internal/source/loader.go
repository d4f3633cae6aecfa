package source

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
)

var reXMLEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._-]+)["']`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads a feed document from disk or over HTTP and returns it as
// UTF-8 text.
type Loader struct {
	httpClient *resty.Client
}

// NewLoader returns a loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{
		httpClient: resty.New().
			SetDebug(false).
			SetTimeout(timeout).
			SetHeader("Accept", "application/xml, text/xml, */*"),
	}
}

// Load fetches the document at loc.
func (l *Loader) Load(ctx context.Context, loc Location) (string, error) {
	var (
		data    []byte
		charset string
		err     error
	)
	if loc.Remote {
		data, charset, err = l.fetch(ctx, loc.Path)
	} else {
		data, err = os.ReadFile(loc.Path)
		if err != nil {
			err = fmt.Errorf("failed to read feed: %w", err)
		}
	}
	if err != nil {
		return "", err
	}

	text, err := toUTF8(data, charset)
	if err != nil {
		return "", fmt.Errorf("%s: %w", loc, err)
	}
	log.Debug().Str("source", loc.Path).Int("bytes", len(text)).Msg("feed loaded")
	return text, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	res, err := l.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	if res.IsError() {
		return nil, "", fmt.Errorf("request failed: GET %s (status: %d)", url, res.StatusCode())
	}

	var charset string
	if _, params, err := mime.ParseMediaType(res.Header().Get("Content-Type")); err == nil {
		charset = params["charset"]
	}
	return res.Body(), charset, nil
}

// toUTF8 converts data using the given charset, or the one named in the XML
// declaration. UTF-8 input only loses its byte order mark.
func toUTF8(data []byte, charset string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if charset == "" {
		head := data
		if len(head) > 256 {
			head = head[:256]
		}
		if m := reXMLEncoding.FindSubmatch(head); m != nil {
			charset = string(m[1])
		}
	}
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(data), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", charset, err)
	}
	return string(decoded), nil
}
