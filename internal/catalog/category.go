package catalog

import "strings"

// Category is a coarse operational grouping derived from the object name.
// The set is closed: anything unrecognized maps to CategoryOther.
type Category int

const (
	CategoryOther Category = iota
	CategoryStation
	CategoryStarlink
	CategoryWeather
	CategoryNavigation
	CategoryCommunication
)

func (c Category) String() string {
	switch c {
	case CategoryStation:
		return "station"
	case CategoryStarlink:
		return "starlink"
	case CategoryWeather:
		return "weather"
	case CategoryNavigation:
		return "navigation"
	case CategoryCommunication:
		return "communication"
	default:
		return "other"
	}
}

// ParseCategory maps a query value to a Category. Unknown values
// report ok=false rather than defaulting to CategoryOther so callers
// can reject typos instead of silently returning the wrong objects.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(s) {
	case "station":
		return CategoryStation, true
	case "starlink":
		return CategoryStarlink, true
	case "weather":
		return CategoryWeather, true
	case "navigation":
		return CategoryNavigation, true
	case "communication":
		return CategoryCommunication, true
	case "other":
		return CategoryOther, true
	default:
		return CategoryOther, false
	}
}

// categoryMarkers maps case-insensitive name substrings to categories.
// Order matters: the first match wins, so the more specific markers come
// before the generic communication constellations.
var categoryMarkers = []struct {
	marker   string
	category Category
}{
	{"ISS", CategoryStation},
	{"TIANGONG", CategoryStation},
	{"CSS (", CategoryStation},
	{"STARLINK", CategoryStarlink},
	{"NOAA", CategoryWeather},
	{"GOES", CategoryWeather},
	{"METOP", CategoryWeather},
	{"METEOSAT", CategoryWeather},
	{"HIMAWARI", CategoryWeather},
	{"GPS", CategoryNavigation},
	{"NAVSTAR", CategoryNavigation},
	{"GLONASS", CategoryNavigation},
	{"GALILEO", CategoryNavigation},
	{"BEIDOU", CategoryNavigation},
	{"IRIDIUM", CategoryCommunication},
	{"ONEWEB", CategoryCommunication},
	{"INTELSAT", CategoryCommunication},
	{"SES-", CategoryCommunication},
	{"EUTELSAT", CategoryCommunication},
	{"GLOBALSTAR", CategoryCommunication},
}

// CategoryFor classifies an object by its catalog name.
func CategoryFor(name string) Category {
	upper := strings.ToUpper(name)
	for _, m := range categoryMarkers {
		if strings.Contains(upper, m.marker) {
			return m.category
		}
	}
	return CategoryOther
}
