package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/fileio"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/downloader")

var ErrSizeMismatch = errors.New("downloaded size does not match content length")
var ErrNoSize = errors.New("remote file size is unknown")

const (
	DefaultBlockSize = 1024 * 1024
	DefaultTimeout   = time.Minute * 10
)

const (
	report_downloader_progress = "downloader.progress"
	report_downloader_download = "downloader.download"
)

type Options struct {
	UserAgent string
	// Proxy is a proxy string accepted by proxy.Parse.
	Proxy     string
	BlockSize int64
	// Timeout bounds every single request, a ranged download makes one
	// request per block.
	Timeout   time.Duration
	Telemetry telemetry.API
}

// Downloader fetches files in one stream or in sequential byte ranges when
// the server supports them.
type Downloader struct {
	blockSize int64
	http      *resty.Client
	tel       telemetry.API
}

func New(opts Options) (*Downloader, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	tel := telemetry.NewScopedAPI("downloader", opts.Telemetry)

	client, err := httpclient.New(httpclient.Options{
		UserAgent:  opts.UserAgent,
		Proxy:      opts.Proxy,
		Timeout:    opts.Timeout,
		TracerName: "atomkit/downloader/http",
		Telemetry:  tel,
	})
	if err != nil {
		return nil, err
	}
	return &Downloader{
		blockSize: opts.BlockSize,
		http:      client,
		tel:       tel,
	}, nil
}

type Head struct {
	Size         int64
	AcceptsRange bool
}

// Head returns the size of the remote file and whether the server
// accepts range requests.
func (d *Downloader) Head(ctx context.Context, url string) (Head, error) {
	res, err := d.http.R().SetContext(ctx).Head(url)
	if err != nil {
		return Head{}, fmt.Errorf("head: %w", err)
	}
	if res.IsError() {
		return Head{}, fmt.Errorf("head: %s", res.Status())
	}

	size, _ := strconv.ParseInt(res.Header().Get("Content-Length"), 10, 64)
	if size <= 0 && res.RawResponse != nil {
		size = res.RawResponse.ContentLength
	}
	if size <= 0 {
		return Head{}, fmt.Errorf("head: %w", ErrNoSize)
	}
	ranges := res.Header().Get("Accept-Ranges")
	return Head{
		Size:         size,
		AcceptsRange: ranges != "" && !strings.EqualFold(ranges, "none"),
	}, nil
}

// Download saves url to file, ranged when the server supports it.
func (d *Downloader) Download(ctx context.Context, url, file string) error {
	ctx, span := tracer.Start(ctx, "downloader:Download")
	defer span.End()

	err := fileio.DirCreate(filepath.Dir(file))
	if err != nil {
		return err
	}

	head, err := d.Head(ctx, url)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_downloader_download, err, url)
		return err
	}
	span.SetAttributes(
		attribute.Int64("size", head.Size),
		attribute.Bool("ranged", head.AcceptsRange),
	)

	if head.AcceptsRange {
		err = d.DownloadRanges(ctx, url, file, head.Size)
	} else {
		err = d.DownloadDirect(ctx, url, file)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_downloader_download, err, url)
	}
	return err
}

func (d *Downloader) stream(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	res, err := d.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		res.RawBody().Close()
		return nil, fmt.Errorf("get %s: %s", url, res.Status())
	}
	return res, nil
}

// DownloadDirect saves url to file in a single request.
func (d *Downloader) DownloadDirect(ctx context.Context, url, file string) error {
	res, err := d.stream(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("download direct: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		return fmt.Errorf("download direct: %w", err)
	}
	d.tel.ReportCount(report_downloader_progress, written)

	expected := res.RawResponse.ContentLength
	if expected > 0 && written != expected {
		return fmt.Errorf("download direct: %w (%d != %d)", ErrSizeMismatch, written, expected)
	}
	return nil
}

// DownloadRanges saves url to file by requesting sequential blocks of
// BlockSize bytes. A total of 0 is resolved with a HEAD request.
func (d *Downloader) DownloadRanges(ctx context.Context, url, file string, total int64) error {
	if total <= 0 {
		head, err := d.Head(ctx, url)
		if err != nil {
			return err
		}
		total = head.Size
	}

	err := fileio.FileDelete(file)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var written int64
	for written < total {
		end := min(written+d.blockSize, total) - 1
		res, err := d.stream(ctx, url, map[string]string{
			"Range": fmt.Sprintf("bytes=%d-%d", written, end),
		})
		if err != nil {
			return fmt.Errorf("download ranges: %w", err)
		}
		if res.StatusCode() != 206 {
			res.RawBody().Close()
			return fmt.Errorf("download ranges: server ignored range, got %s", res.Status())
		}

		n, err := io.Copy(f, res.RawBody())
		res.RawBody().Close()
		if err != nil {
			return fmt.Errorf("download ranges: %w", err)
		}
		if n == 0 {
			break
		}
		written += n
		d.tel.ReportCount(report_downloader_progress, written)
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() != total {
		return fmt.Errorf("download ranges: %w (%d != %d)", ErrSizeMismatch, info.Size(), total)
	}
	return nil
}

// DownloadBytes returns the body of url.
func (d *Downloader) DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	res, err := d.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download bytes: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("download bytes: %s", res.Status())
	}
	return res.Body(), nil
}
