package geo

import (
	"path/filepath"
	"testing"
	"time"

	devenv "atomkit/dev/env"

	"github.com/google/go-cmp/cmp"
	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/require"
)

func TestUTCOffset(t *testing.T) {
	winter := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

	require.Equal(t, 8, UTCOffset("Asia/Shanghai", winter))
	require.Equal(t, -5, UTCOffset("America/New_York", winter))
	require.Equal(t, -4, UTCOffset("America/New_York", summer))
	require.Equal(t, 0, UTCOffset("Nowhere/Special", winter))
}

func TestToAddress(t *testing.T) {
	record := &geoip2.City{}
	record.Country.IsoCode = "US"
	record.City.Names = map[string]string{"en": "Buffalo"}
	record.Postal.Code = "14202"
	record.Location.Latitude = 42.8865
	record.Location.Longitude = -78.8784
	record.Subdivisions = append(record.Subdivisions, struct {
		Names     map[string]string `maxminddb:"names"`
		IsoCode   string            `maxminddb:"iso_code"`
		GeoNameID uint              `maxminddb:"geoname_id"`
	}{Names: map[string]string{"en": "New York"}, IsoCode: "NY"})

	expected := Address{
		IP:         "172.245.255.158",
		Country:    "US",
		State:      "New York",
		City:       "Buffalo",
		Zip:        "14202",
		Coordinate: Coordinate{Latitude: 42.8865, Longitude: -78.8784},
	}
	if diff := cmp.Diff(expected, toAddress("172.245.255.158", record)); diff != "" {
		t.Fatal(diff)
	}
}

func TestOpen(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	type state struct {
		GeoDB string `json:"geo_db"`
	}
	cfg := devenv.RequireStateConfig[state](t, "geo/config.json5")
	file, err := devenv.ResolvePath(cfg.GeoDB)
	require.NoError(t, err)

	addr, err := Lookup(file, "172.245.255.158")
	require.NoError(t, err)
	require.NotEmpty(t, addr.Country)
	require.NotEmpty(t, addr.TimeZone)
	require.NotZero(t, addr.Coordinate.Latitude)

	_, err = Lookup(file, "not-an-ip")
	require.Error(t, err)
}
