package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Info is what the prober attaches to a result: country for filtering,
// ISP for filtering, coordinates for proximity ranking.
type Info struct {
	Country   string
	ISP       string
	Latitude  float64
	Longitude float64
	HasCoords bool
}

// Database wraps the optional MaxMind readers. Either may be absent; a nil
// Database is valid and returns empty enrichment.
type Database struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

// Open loads the city and ASN databases. Empty paths are skipped; if both
// are empty the returned Database is nil, which callers treat as "no
// enrichment".
func Open(cityPath, asnPath string) (*Database, error) {
	if cityPath == "" && asnPath == "" {
		return nil, nil
	}
	db := &Database{}
	if cityPath != "" {
		r, err := geoip2.Open(cityPath)
		if err != nil {
			return nil, err
		}
		db.city = r
	}
	if asnPath != "" {
		r, err := geoip2.Open(asnPath)
		if err != nil {
			db.Close()
			return nil, err
		}
		db.asn = r
	}
	return db, nil
}

func (d *Database) Lookup(ipStr string) Info {
	var info Info
	if d == nil {
		return info
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return info
	}

	if d.city != nil {
		if rec, err := d.city.City(ip); err == nil {
			info.Country = rec.Country.IsoCode
			if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
				info.Latitude = rec.Location.Latitude
				info.Longitude = rec.Location.Longitude
				info.HasCoords = true
			}
		}
	}
	if d.asn != nil {
		if rec, err := d.asn.ASN(ip); err == nil {
			info.ISP = rec.AutonomousSystemOrganization
		}
	}
	return info
}

func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.city != nil {
		d.city.Close()
	}
	if d.asn != nil {
		d.asn.Close()
	}
}
