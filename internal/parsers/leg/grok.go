// Package leg provides grok-style pattern definitions for duty-day leg lines.
package leg

import "roster_parser/internal/patterns"

// Formats defines the known leg line formats. The time columns use
// {TIMETOKEN} rather than {TIME4} so malformed times are caught and
// reported by the parser instead of the line being ignored.
var Formats = []patterns.Format{
	// Leg line, optionally led by the duty-day letter, DH and flight number.
	// Example: A    1658  ATL 0920  MCO 1055
	// Example: B DH 1658  ATL 0920  MCO 1055
	// Example:      2214  ONT 2229  ATL 0539*
	// Example:            MCO 1230  ATL 1415
	{
		Name: "leg",
		Pattern: `^(?:(?P<day>{DAY})\s+)?(?:(?P<dh>DH)\s+)?(?:(?P<flight>{FLIGHT})\s+)?` +
			`(?P<dep>{IATA})\s+(?P<dep_time>{TIMETOKEN})\s+` +
			`(?P<arr>{IATA})\s+(?P<arr_time>{TIMETOKEN})(?:\s|$)`,
		Fields: []string{"day", "dh", "flight", "dep", "dep_time", "arr", "arr_time"},
	},
}
