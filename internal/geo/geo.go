package geo

import (
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Address struct {
	IP         string     `json:"ip"`
	TimeZone   string     `json:"time_zone"`
	TZOffset   int        `json:"tz_offset"`
	Country    string     `json:"country"`
	State      string     `json:"state"`
	City       string     `json:"city"`
	Street     string     `json:"street"`
	Zip        string     `json:"zip"`
	Coordinate Coordinate `json:"coordinate"`
}

// DB looks up addresses in a maxmind city database.
type DB struct {
	reader *geoip2.Reader
}

func Open(file string) (*DB, error) {
	reader, err := geoip2.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open geo db: %w", err)
	}
	return &DB{reader: reader}, nil
}

func (db *DB) Close() error {
	return db.reader.Close()
}

func (db *DB) Lookup(ip string) (Address, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Address{}, fmt.Errorf("lookup: invalid ip '%s'", ip)
	}
	record, err := db.reader.City(parsed)
	if err != nil {
		return Address{}, fmt.Errorf("lookup %s: %w", ip, err)
	}
	return toAddress(ip, record), nil
}

// Lookup opens file, looks up ip and closes it again.
func Lookup(file, ip string) (Address, error) {
	db, err := Open(file)
	if err != nil {
		return Address{}, err
	}
	defer db.Close()
	return db.Lookup(ip)
}

func toAddress(ip string, record *geoip2.City) Address {
	addr := Address{
		IP:       ip,
		TimeZone: record.Location.TimeZone,
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		Zip:      record.Postal.Code,
		Coordinate: Coordinate{
			Latitude:  record.Location.Latitude,
			Longitude: record.Location.Longitude,
		},
	}
	if n := len(record.Subdivisions); n > 0 {
		addr.State = record.Subdivisions[n-1].Names["en"]
	}
	if addr.TimeZone != "" {
		addr.TZOffset = UTCOffset(addr.TimeZone, time.Now())
	}
	return addr
}

// UTCOffset returns the offset in whole hours of the time zone at t, 0 for
// unknown zones.
func UTCOffset(tz string, t time.Time) int {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0
	}
	_, offset := t.In(loc).Zone()
	return offset / 3600
}
