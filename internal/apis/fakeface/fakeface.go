package fakeface

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/apis/fakeface")

const DefaultBaseURL = "https://fakeface.rest"

const (
	report_client_face     = "client.face"
	report_client_download = "client.download"
)

type Gender string

const (
	Female Gender = "female"
	Male   Gender = "male"
)

type Options struct {
	BaseURL   string
	UserAgent string
	Proxy     string
	Telemetry telemetry.API
	Debug     httpclient.DebugOutput
}

// Client fetches generated face photos, the site sits behind cloudflare.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	tel := telemetry.NewScopedAPI("fakeface", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		BaseURL:          opts.BaseURL,
		UserAgent:        opts.UserAgent,
		Proxy:            opts.Proxy,
		BypassCloudflare: true,
		TracerName:       "atomkit/apis/fakeface/http",
		Telemetry:        tel,
		Debug:            opts.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: client, tel: tel}, nil
}

var faceName = regexp.MustCompile(`(male|female)_(\d+)_\w+?\.`)

type faceResponse struct {
	ImageURL string `json:"image_url"`
}

// Face returns the url of a random face of gender aged within
// [minAge, maxAge].
func (c *Client) Face(ctx context.Context, gender Gender, minAge, maxAge int) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Face")
	defer span.End()

	if gender == "" {
		gender = Female
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"gender":      string(gender),
			"minimum_age": strconv.Itoa(minAge),
			"maximum_age": strconv.Itoa(maxAge),
		}).
		Get("/face/json")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch face")
		c.tel.ReportBroken(report_client_face, err)
		return "", fmt.Errorf("face: %w", err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, res.Status())
		return "", fmt.Errorf("face: %s", res.Status())
	}

	var body faceResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode face")
		return "", fmt.Errorf("face: %w", err)
	}
	if !faceName.MatchString(path.Base(body.ImageURL)) {
		c.tel.ReportWarning(report_client_face, fmt.Errorf("unexpected image url"), body.ImageURL)
		return "", fmt.Errorf("face: unexpected image url '%s'", body.ImageURL)
	}
	return body.ImageURL, nil
}

// Download saves the image at url into file.
func (c *Client) Download(ctx context.Context, url, file string) error {
	ctx, span := tracer.Start(ctx, "client:Download")
	defer span.End()

	err := os.MkdirAll(filepath.Dir(file), 0777)
	if err != nil {
		return fmt.Errorf("download face: %w", err)
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetOutput(file).
		Get(url)
	if err != nil {
		span.SetStatus(codes.Error, "failed to download face")
		c.tel.ReportBroken(report_client_download, err, url)
		return fmt.Errorf("download face: %w", err)
	}
	if res.IsError() {
		os.Remove(file)
		span.SetStatus(codes.Error, res.Status())
		return fmt.Errorf("download face: %s", res.Status())
	}
	return nil
}
