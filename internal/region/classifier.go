package region

import (
	"regexp"
	"strings"

	"github.com/phpscreening/screener/internal/models"
)

// FallbackWindow is how many leading characters are inspected when no address label is found.
const FallbackWindow = 300

// The separator class also accepts Unicode spaces such as U+00A0 and U+FEFF.
var addressAnchor = regexp.MustCompile(`(?i)Current Address[:\s\p{Z}\x{FEFF}]+([^\n\r]{2,100})`)

// Dictionary pairs a region with the keywords that identify it.
type Dictionary struct {
	Region   models.Region
	Keywords []string
}

// Dictionaries are checked in order; the first with any keyword present wins.
// Matching is plain substring containment, so short tokens such as ch, uk or usa
// are not listed.
var Dictionaries = []Dictionary{
	{
		Region: models.RegionSwitzerland,
		Keywords: []string{
			"switzerland", "schweiz", "suisse", "svizzera",
			"zurich", "zürich", "geneva", "genève", "bern", "lausanne", "basel",
			"lucerne", "luzern", "lugano", "st. gallen", "vaud", "ticino",
		},
	},
	{
		Region: models.RegionEurope,
		Keywords: []string{
			"united kingdom", "great britain", "england", "scotland", "wales", "london", "edinburgh",
			"france", "paris", "germany", "deutschland", "berlin", "munich", "italy", "italia", "rome", "milano",
			"spain", "espana", "madrid", "barcelona", "netherlands", "holland", "amsterdam", "the hague",
			"belgium", "brussels", "austria", "vienna", "sweden", "stockholm", "norway", "oslo",
			"denmark", "copenhagen", "finland", "helsinki", "ireland", "dublin", "portugal", "lisbon",
			"poland", "warsaw", "czech", "prague", "hungary", "budapest", "greece", "athens",
			"romania", "bulgaria", "slovakia", "croatia", "lithuania", "slovenia", "latvia",
			"estonia", "cyprus", "luxembourg", "malta", "iceland", "liechtenstein",
		},
	},
	{
		Region: models.RegionDeveloped,
		Keywords: []string{
			"united states", "u.s.a", "america", "new york", "washington", "california", "texas",
			"canada", "toronto", "vancouver", "montreal", "japan", "tokyo", "osaka",
			"australia", "sydney", "melbourne", "new zealand", "auckland",
			"singapore", "south korea", "seoul", "israel", "tel aviv",
		},
	},
}

// Classify maps free text onto a region using the package dictionaries.
func Classify(text string) models.Region {
	return ClassifyWith(text, Dictionaries)
}

// ClassifyWith maps free text onto a region using dicts in priority order.
func ClassifyWith(text string, dicts []Dictionary) models.Region {
	if text == "" {
		return models.RegionOthers
	}

	target := Target(text)
	for _, d := range dicts {
		for _, kw := range d.Keywords {
			if strings.Contains(target, kw) {
				return d.Region
			}
		}
	}
	return models.RegionOthers
}

// Target returns the lower-cased snippet that classification inspects: the run
// following a "Current Address" label, or the first FallbackWindow characters.
func Target(text string) string {
	if m := addressAnchor.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
		return strings.ToLower(m[1])
	}
	return strings.ToLower(Truncate(text, FallbackWindow))
}

// Truncate keeps at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
