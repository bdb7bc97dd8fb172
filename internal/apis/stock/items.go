package stock

import "fmt"

type Item struct {
	ID        int
	Type      string
	Tags      string
	Views     int
	Downloads int
}

type Photo struct {
	Item
	Width  int
	Height int
	Size   int
	URL    string
}

type Video struct {
	Item
	Duration int
	Width    int
	Height   int
	Size     int
	URL      string
}

type Icon struct {
	Item
}

type Font struct {
	Item
}

type VideoFile struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

type Hit struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Tags      string `json:"tags"`
	Views     int    `json:"views"`
	Downloads int    `json:"downloads"`

	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	ImageSize     int    `json:"imageSize"`
	ImageURL      string `json:"imageURL"`
	FullHDURL     string `json:"fullHDURL"`
	VectorURL     string `json:"vectorURL"`
	LargeImageURL string `json:"largeImageURL"`
	WebformatURL  string `json:"webformatURL"`
	PreviewURL    string `json:"previewURL"`

	Duration int                  `json:"duration"`
	Videos   map[string]VideoFile `json:"videos"`
}

func (h Hit) item() Item {
	return Item{ID: h.ID, Type: h.Type, Tags: h.Tags, Views: h.Views, Downloads: h.Downloads}
}

type Response struct {
	Total     int   `json:"total"`
	TotalHits int   `json:"totalHits"`
	Hits      []Hit `json:"hits"`
}

// ParseTotals returns the total and the number of hits the api lets you
// page through.
func ParseTotals(res Response) (int, int) {
	return res.Total, res.TotalHits
}

type URLType string

const (
	ImageURL      URLType = "imageURL"
	FullHDURL     URLType = "fullHDURL"
	VectorURL     URLType = "vectorURL"
	LargeImageURL URLType = "largeImageURL"
)

func (h Hit) imageURL(urlType URLType) (string, error) {
	switch urlType {
	case ImageURL:
		return h.ImageURL, nil
	case FullHDURL:
		return h.FullHDURL, nil
	case VectorURL:
		return h.VectorURL, nil
	case LargeImageURL:
		return h.LargeImageURL, nil
	}
	return "", fmt.Errorf("url type '%s' not valid", urlType)
}

// ParseImages returns the photos that have a url of urlType.
func ParseImages(res Response, urlType URLType) ([]Photo, error) {
	photos := []Photo{}
	for _, hit := range res.Hits {
		url, err := hit.imageURL(urlType)
		if err != nil {
			return nil, err
		}
		if url == "" {
			continue
		}
		photos = append(photos, Photo{
			Item:   hit.item(),
			Width:  hit.ImageWidth,
			Height: hit.ImageHeight,
			Size:   hit.ImageSize,
			URL:    url,
		})
	}
	return photos, nil
}

var videoSizes = []string{"large", "medium", "small", "tiny"}

// ParseVideos returns the videos that have a file of size.
func ParseVideos(res Response, size string) ([]Video, error) {
	valid := false
	for _, s := range videoSizes {
		valid = valid || s == size
	}
	if !valid {
		return nil, fmt.Errorf("video size '%s' not valid", size)
	}

	videos := []Video{}
	for _, hit := range res.Hits {
		file, ok := hit.Videos[size]
		if !ok || file.URL == "" {
			continue
		}
		videos = append(videos, Video{
			Item:     hit.item(),
			Duration: hit.Duration,
			Width:    file.Width,
			Height:   file.Height,
			Size:     file.Size,
			URL:      file.URL,
		})
	}
	return videos, nil
}
