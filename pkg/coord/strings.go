package coord

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid coordinate format")

var (
	rDD  = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)[,\s]+(-?\d+(?:\.\d+)?)$`)
	rDDM = regexp.MustCompile(`(?i)^(-?\d+)[°\s]+(\d+(?:\.\d+)?)['’]?\s*([NSEW])?$`)
	rWS  = regexp.MustCompile(`\s+`)
)

// LatLon is a WGS84 point. It is encoded in JSON as [lat, lon].
type LatLon struct {
	Lat float64
	Lon float64
}

func (ll *LatLon) Pair() [2]float64 {
	return [2]float64{ll.Lat, ll.Lon}
}

// GeoJSON returns the point in GeoJSON axis order.
func (ll *LatLon) GeoJSON() [2]float64 {
	return [2]float64{ll.Lon, ll.Lat}
}

func (ll *LatLon) String() string {
	if ll == nil {
		return ""
	}

	return fmt.Sprintf("%.5f, %.5f", ll.Lat, ll.Lon)
}

func (ll *LatLon) MarshalJSON() ([]byte, error) {
	return json.Marshal(ll.Pair())
}

func (ll *LatLon) UnmarshalJSON(b []byte) error {
	var p []float64

	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	if len(p) != 2 {
		return ErrInvalid
	}

	ll.Lat, ll.Lon = p[0], p[1]

	return nil
}

// Parse converts free text into a point.
// Empty input is "not provided" and returns nil, nil.
// Anything that can't be parsed as a whole returns ErrInvalid.
func Parse(s string) (*LatLon, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return nil, nil
	}

	// decimal degrees: "61.10478, -149.79553" or "61.10478 -149.79553"
	if res := rDD.FindStringSubmatch(s); res != nil {
		lat, err1 := strconv.ParseFloat(res[1], 64)
		lon, err2 := strconv.ParseFloat(res[2], 64)

		if err1 == nil && err2 == nil {
			return &LatLon{Lat: lat, Lon: lon}, nil
		}
	}

	// degrees and decimal minutes, split by comma
	if parts := strings.Split(s, ","); len(parts) == 2 {
		if ll := pair(parts[0], parts[1]); ll != nil {
			return ll, nil
		}
	}

	tokens := rWS.Split(s, -1)

	switch len(tokens) {
	case 2:
		// "61°06.287' -149°47.732'"
		if ll := pair(tokens[0], tokens[1]); ll != nil {
			return ll, nil
		}
	case 4:
		// "61 06.287 -149 47.732"
		if ll := pair(tokens[0]+" "+tokens[1], tokens[2]+" "+tokens[3]); ll != nil {
			return ll, nil
		}
	}

	return nil, ErrInvalid
}

func pair(lat, lon string) *LatLon {
	la, ok1 := parseDDM(lat)
	lo, ok2 := parseDDM(lon)

	if !ok1 || !ok2 {
		return nil
	}

	return &LatLon{Lat: la, Lon: lo}
}

func parseDDM(s string) (float64, bool) {
	res := rDDM.FindStringSubmatch(strings.TrimSpace(s))

	if res == nil {
		return 0, false
	}

	deg, err := strconv.ParseFloat(res[1], 64)
	if err != nil {
		return 0, false
	}

	min, err := strconv.ParseFloat(res[2], 64)
	if err != nil {
		return 0, false
	}

	val := math.Abs(deg) + min/60

	dir := strings.ToUpper(res[3])

	if strings.HasPrefix(res[1], "-") || dir == "S" || dir == "W" {
		val = -val
	}

	return val, true
}
