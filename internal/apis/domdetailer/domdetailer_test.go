package domdetailer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{App: "atom", Key: "secret", BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkBalance.php", r.URL.Path)
		require.Equal(t, "secret", r.FormValue("apikey"))
		require.Equal(t, "atom", r.FormValue("app"))
		fmt.Fprint(w, `["UnitsLeft", "1234"]`)
	})
	units, err := client.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1234, units)

	broken := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `["Invalid API Key"]`)
	})
	_, err = broken.Balance(context.Background())
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkDomain.php", r.URL.Path)
		require.Equal(t, "example.com", r.FormValue("domain"))
		require.Equal(t, "root", r.FormValue("majesticChoice"))
		fmt.Fprint(w, `{"domain":"example.com","mozDA":"45","mozPA":50,"majesticCF":12,"majesticTF":"9","FB_shares":3}`)
	})

	data, err := client.Check(context.Background(), "example.com", "")
	require.NoError(t, err)

	metrics := ParseMetrics(data)
	expected := Metrics{Domain: "example.com", MozDA: 45, MozPA: 50, MajesticCF: 12, MajesticTF: 9, FBShares: 3}
	if diff := cmp.Diff(expected, metrics); diff != "" {
		t.Fatal(diff)
	}
	require.False(t, metrics.Pass(DefaultThresholds()))
	metrics.MajesticTF = 10
	require.True(t, metrics.Pass(DefaultThresholds()))

	_, err = client.Check(context.Background(), "example.com", Mode("everything"))
	require.Error(t, err)
}

func TestCheckNotObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	_, err := client.Check(context.Background(), "example.com", ModeAsIs)
	require.Error(t, err)
}
