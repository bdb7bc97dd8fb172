package pinger

import (
	"net/url"
	"os"
	"slices"
	"strings"

	"atomkit/lib/fileio"

	"golang.org/x/net/publicsuffix"
)

var DefaultServices = []string{
	"http://rpc.pingomatic.com",
	"https://rpc.twingly.com/",
	"http://ping.blo.gs/",
	"http://www.blogdigger.com/RPC2",
}

// Service is an xml-rpc ping endpoint and the result of its last check.
type Service struct {
	URL       string `json:"url"`
	Geo       string `json:"geo"`
	Alive     bool   `json:"alive"`
	Timestamp int64  `json:"timestamp"`
	Err       string `json:"err"`
}

// Normalize returns url without its trailing slash, or an empty string when
// it is not an http(s) url.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return strings.TrimSuffix(raw, "/")
}

// Geo returns the public suffix of the url's host, ex. "co.uk".
func Geo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	suffix, _ := publicsuffix.PublicSuffix(u.Hostname())
	return suffix
}

// normalizeAll normalizes urls, drops the invalid ones and returns the
// rest deduplicated and sorted.
func normalizeAll(urls []string) []string {
	var out []string
	for _, raw := range urls {
		u := Normalize(raw)
		if u == "" {
			continue
		}
		out = append(out, u)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// LoadServices reads the services file, a missing file is empty.
func LoadServices(file string) (map[string]*Service, error) {
	services, err := fileio.LoadJSON[map[string]*Service](file)
	if os.IsNotExist(err) {
		return map[string]*Service{}, nil
	}
	if err != nil {
		return nil, err
	}
	if services == nil {
		services = map[string]*Service{}
	}
	return services, nil
}

func SaveServices(file string, services map[string]*Service) error {
	return fileio.SaveJSON(file, services)
}
