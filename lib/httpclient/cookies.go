package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"atomkit/lib/fileio"

	"github.com/go-resty/resty/v2"
)

func cookieURL(client *resty.Client, rawURL string) (*url.URL, http.CookieJar, error) {
	jar := client.GetClient().Jar
	if jar == nil {
		return nil, nil, fmt.Errorf("client has no cookie jar")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}
	return u, jar, nil
}

// SaveCookies writes the cookies the client holds for rawURL to path as a
// json object of name to value.
func SaveCookies(client *resty.Client, rawURL, path string) error {
	u, jar, err := cookieURL(client, rawURL)
	if err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	cookies := map[string]string{}
	for _, cookie := range jar.Cookies(u) {
		cookies[cookie.Name] = cookie.Value
	}
	err = fileio.SaveJSON(path, cookies)
	if err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

// LoadCookies loads cookies saved with SaveCookies into the client's jar,
// a missing file is ignored.
func LoadCookies(client *resty.Client, rawURL, path string) error {
	u, jar, err := cookieURL(client, rawURL)
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}
	saved, err := fileio.LoadJSON[map[string]string](path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for name, value := range saved {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	jar.SetCookies(u, cookies)
	return nil
}
