package stock

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

var validValues = map[string][]string{
	"lang": {
		"cs", "da", "de", "en", "es", "fr", "id", "it", "hu", "nl", "no", "pl", "pt",
		"ro", "sk", "fi", "sv", "tr", "vi", "th", "bg", "ru", "el", "ja", "ko", "zh",
	},
	"image_type":  {"all", "photo", "illustration", "vector"},
	"video_type":  {"all", "film", "animation"},
	"orientation": {"all", "horizontal", "vertical"},
	"category": {
		"backgrounds", "fashion", "nature", "science", "education", "feelings", "health",
		"people", "religion", "places", "animals", "industry", "computer", "food",
		"sports", "transportation", "travel", "buildings", "business", "music",
	},
	"colors": {
		"grayscale", "transparent", "red", "orange", "yellow", "green", "turquoise",
		"blue", "lilac", "pink", "white", "gray", "black", "brown",
	},
	"order": {"popular", "latest"},
}

// ValidValues returns the values pixabay accepts for key, nil when any
// value is accepted.
func ValidValues(key string) []string {
	return validValues[key]
}

const (
	maxQueryChars = 100
	minPerPage    = 3
	maxPerPage    = 200
)

// Params are the search parameters of the pixabay api, zero values are
// left out of the request.
type Params struct {
	Q           string
	Lang        string
	ID          string
	ImageType   string
	VideoType   string
	Orientation string
	Category    string
	Order       string
	Callback    string

	MinWidth  int
	MinHeight int
	Page      int
	PerPage   int

	EditorsChoice bool
	SafeSearch    bool
	Pretty        bool

	Colors []string
}

// suggest returns the valid value closest to value.
func suggest(value string, valid []string) string {
	best := ""
	bestScore := -1.0
	for _, candidate := range valid {
		score := matchr.JaroWinkler(value, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

func checkEnum(key, value string) error {
	if value == "" {
		return nil
	}
	valid := validValues[key]
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("param `%s` not valid: '%s', did you mean '%s'?", key, value, suggest(value, valid))
}

func (p Params) Validate() error {
	if len(p.Q) > maxQueryChars {
		return fmt.Errorf("param `q` cannot exceed %d characters", maxQueryChars)
	}
	enums := []struct {
		key   string
		value string
	}{
		{"lang", p.Lang},
		{"image_type", p.ImageType},
		{"video_type", p.VideoType},
		{"orientation", p.Orientation},
		{"category", p.Category},
		{"order", p.Order},
	}
	for _, enum := range enums {
		if err := checkEnum(enum.key, enum.value); err != nil {
			return err
		}
	}
	for _, color := range p.Colors {
		if err := checkEnum("colors", color); err != nil {
			return err
		}
	}
	if p.MinWidth < 0 || p.MinHeight < 0 {
		return fmt.Errorf("param `min_width` and `min_height` cannot be negative")
	}
	if p.Page < 0 {
		return fmt.Errorf("param `page` < 1")
	}
	if p.PerPage != 0 && (p.PerPage < minPerPage || p.PerPage > maxPerPage) {
		return fmt.Errorf("param `per_page` must be within [%d, %d]", minPerPage, maxPerPage)
	}
	return nil
}

type pair struct {
	key   string
	value string
}

// pairs returns the request parameters in a stable order, lang defaults
// to en.
func (p Params) pairs() []pair {
	lang := p.Lang
	if lang == "" {
		lang = "en"
	}
	out := []pair{{"lang", lang}}
	add := func(key, value string) {
		if value != "" {
			out = append(out, pair{key, value})
		}
	}
	addInt := func(key string, value int) {
		if value != 0 {
			out = append(out, pair{key, strconv.Itoa(value)})
		}
	}
	addBool := func(key string, value bool) {
		if value {
			out = append(out, pair{key, "true"})
		}
	}

	add("q", p.Q)
	add("id", p.ID)
	add("image_type", p.ImageType)
	add("video_type", p.VideoType)
	add("orientation", p.Orientation)
	add("category", p.Category)
	addInt("min_width", p.MinWidth)
	addInt("min_height", p.MinHeight)
	if len(p.Colors) > 0 {
		add("colors", strings.Join(p.Colors, ","))
	}
	addBool("editors_choice", p.EditorsChoice)
	addBool("safesearch", p.SafeSearch)
	add("order", p.Order)
	addInt("page", p.Page)
	addInt("per_page", p.PerPage)
	add("callback", p.Callback)
	addBool("pretty", p.Pretty)
	return out
}

// encode renders the parameters as a query string, spaces become `+` and
// color lists keep their commas.
func (p Params) encode() string {
	var out strings.Builder
	for i, pair := range p.pairs() {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(pair.key)
		out.WriteByte('=')
		if pair.key == "colors" {
			out.WriteString(pair.value)
			continue
		}
		out.WriteString(url.QueryEscape(pair.value))
	}
	return out.String()
}
