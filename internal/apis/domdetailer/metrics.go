package domdetailer

type Metrics struct {
	Domain             string
	MozLinks           float64
	MozPA              float64
	MozDA              float64
	MozRank            float64
	MajesticLinks      float64
	MajesticRefDomains float64
	MajesticCF         float64
	MajesticTF         float64
	FBComments         float64
	FBShares           float64
	PinterestPins      float64
}

// Thresholds are the minimum metrics a domain needs to pass.
type Thresholds struct {
	CF float64
	TF float64
	DA float64
	PA float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{CF: 10, TF: 10, DA: 10, PA: 10}
}

// ParseMetrics reads the fields of a Check response, numbers may come
// back as json strings.
func ParseMetrics(data map[string]any) Metrics {
	get := func(key string) float64 {
		v, _ := number(data[key])
		return v
	}
	domain, _ := data["domain"].(string)
	return Metrics{
		Domain:             domain,
		MozLinks:           get("mozLinks"),
		MozPA:              get("mozPA"),
		MozDA:              get("mozDA"),
		MozRank:            get("mozRank"),
		MajesticLinks:      get("majesticLinks"),
		MajesticRefDomains: get("majesticRefDomains"),
		MajesticCF:         get("majesticCF"),
		MajesticTF:         get("majesticTF"),
		FBComments:         get("FB_comments"),
		FBShares:           get("FB_shares"),
		PinterestPins:      get("pinterest_pins"),
	}
}

func (m Metrics) Pass(t Thresholds) bool {
	return m.MajesticCF >= t.CF &&
		m.MajesticTF >= t.TF &&
		m.MozDA >= t.DA &&
		m.MozPA >= t.PA
}
