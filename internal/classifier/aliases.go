package classifier

// UnknownBase is the base code for airports outside the alias table.
const UnknownBase = "UNKNOWN"

// BaseAliases maps an airport code to the crew base it belongs to.
type BaseAliases map[string]string

// DefaultAliases is the fixed airport-to-base table.
var DefaultAliases = BaseAliases{
	"ATL": "ATL",
	"BOS": "BOS",
	"JFK": "NYC",
	"LGA": "NYC",
	"EWR": "NYC",
	"DTW": "DTW",
	"SLC": "SLC",
	"MSP": "MSP",
	"SEA": "SEA",
	"LAX": "LAX",
	"LGB": "LAX",
	"ONT": "LAX",
}

// BaseCodes lists the crew bases in presentation order.
var BaseCodes = []string{"ATL", "BOS", "NYC", "DTW", "SLC", "MSP", "SEA", "LAX"}

// Base returns the base an airport belongs to.
func (a BaseAliases) Base(airport string) (string, bool) {
	base, ok := a[airport]
	if !ok {
		return UnknownBase, false
	}
	return base, true
}

// InGroup reports whether airport belongs to base's alias group.
func (a BaseAliases) InGroup(airport, base string) bool {
	if base == UnknownBase {
		return false
	}
	got, ok := a[airport]
	return ok && got == base
}

// IsBase reports whether code is a known crew base.
func IsBase(code string) bool {
	for _, b := range BaseCodes {
		if b == code {
			return true
		}
	}
	return false
}
