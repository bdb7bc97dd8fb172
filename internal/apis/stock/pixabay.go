package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"atomkit/internal/cache"
	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/apis/stock")

const DefaultBaseURL = "https://pixabay.com/api/"

const (
	report_pixabay_search = "pixabay.search"
	report_pixabay_cache  = "pixabay.cache"
)

type Kind int

const (
	Images Kind = iota
	Videos
)

type Options struct {
	Key     string
	BaseURL string
	// Cache stores raw responses by request url, nil disables caching.
	Cache     cache.Store
	Telemetry telemetry.API
	Debug     httpclient.DebugOutput
}

// Pixabay searches the pixabay.com photo and video api.
type Pixabay struct {
	key     string
	baseURL string
	cache   cache.Store
	http    *resty.Client
	tel     telemetry.API
}

func NewPixabay(opts Options) (*Pixabay, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	tel := telemetry.NewScopedAPI("stock", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		TracerName: "atomkit/apis/stock/http",
		Telemetry:  tel,
		Debug:      opts.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &Pixabay{
		key:     opts.Key,
		baseURL: opts.BaseURL,
		cache:   opts.Cache,
		http:    client,
		tel:     tel,
	}, nil
}

// URL returns the request url of a search.
func (p *Pixabay) URL(kind Kind, params Params) string {
	base := p.baseURL
	if kind == Videos {
		base += "videos/"
	}
	return fmt.Sprintf("%s?key=%s&%s", base, p.key, params.encode())
}

// Search validates params and returns the decoded response, responses
// are served from the cache when one is set.
func (p *Pixabay) Search(ctx context.Context, kind Kind, params Params) (Response, error) {
	ctx, span := tracer.Start(ctx, "pixabay:Search")
	defer span.End()

	err := params.Validate()
	if err != nil {
		span.SetStatus(codes.Error, "invalid params")
		return Response{}, fmt.Errorf("search: %w", err)
	}

	url := p.URL(kind, params)
	body, err := p.cached(ctx, url)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Response{}, fmt.Errorf("search: %w", err)
	}

	var res Response
	err = json.Unmarshal(body, &res)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode response")
		p.tel.ReportBroken(report_pixabay_search, err)
		return Response{}, fmt.Errorf("search: %w", err)
	}
	span.SetAttributes(attribute.Int("total_hits", res.TotalHits))
	return res, nil
}

func (p *Pixabay) cached(ctx context.Context, url string) ([]byte, error) {
	if p.cache != nil {
		err := p.cache.Prune(ctx)
		if err != nil {
			p.tel.ReportWarning(report_pixabay_cache, err)
		}
		data, ok, err := p.cache.Get(ctx, url)
		if err != nil {
			p.tel.ReportWarning(report_pixabay_cache, err)
		}
		if ok {
			p.tel.ReportDebug("cache hit", "url", url)
			return data, nil
		}
	}

	res, err := p.http.R().SetContext(ctx).Get(url)
	if err != nil {
		p.tel.ReportBroken(report_pixabay_search, err)
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%s: %s", res.Status(), res.String())
	}

	if p.cache != nil {
		err = p.cache.Set(ctx, url, res.Body())
		if err != nil {
			p.tel.ReportWarning(report_pixabay_cache, err)
		}
	}
	return res.Body(), nil
}

// SearchImages searches images, image type defaults to all.
func (p *Pixabay) SearchImages(ctx context.Context, params Params) (Response, error) {
	if params.ImageType == "" {
		params.ImageType = "all"
	}
	params.VideoType = ""
	return p.Search(ctx, Images, params)
}

// SearchVideos searches videos, video type defaults to all.
func (p *Pixabay) SearchVideos(ctx context.Context, params Params) (Response, error) {
	if params.VideoType == "" {
		params.VideoType = "all"
	}
	params.ImageType = ""
	return p.Search(ctx, Videos, params)
}
