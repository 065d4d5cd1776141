// Package credit provides grok-style pattern definitions for TOTAL CREDIT lines.
package credit

import "roster_parser/internal/patterns"

// Formats defines the known TOTAL CREDIT formats.
var Formats = []patterns.Format{
	// Full credit line.
	// Example: TOTAL CREDIT 16.28TL 10.00BL 6.28CR 12.30FDP TAFB 72.30
	{
		Name: "full",
		Pattern: `TOTAL\s+CREDIT\s+(?P<tl>{HOURS})\s*TL` +
			`(?:\s+(?P<bl>{HOURS})\s*BL)?` +
			`(?:\s+(?P<cr>{HOURS})\s*CR)?` +
			`(?:\s+(?P<fdp>{HOURS})\s*FDP)?` +
			`(?:.*?\bTAFB\s+(?P<tafb>{HOURS}))?`,
		Fields: []string{"tl", "bl", "cr", "fdp", "tafb"},
	},
	// Credit line whose TL value is missing or unreadable.
	// Example: TOTAL CREDIT ----TL  TAFB 40.15
	{
		Name:    "partial",
		Pattern: `TOTAL\s+CREDIT\b(?:.*?\bTAFB\s+(?P<tafb>{HOURS}))?`,
		Fields:  []string{"tafb"},
	},
}
