// Package header provides grok-style pattern definitions for trip header lines.
package header

import "roster_parser/internal/patterns"

// Formats defines the known trip header formats.
var Formats = []patterns.Format{
	// Header with an EFFECTIVE expression.
	// Example: #1234 WE FR EFFECTIVE JAN21-JAN. 28 CHECK-IN AT 08.30
	// Example: #0412 SA EFFECTIVE JAN01 ONLY
	{
		Name: "effective",
		Pattern: `^#(?P<trip>{TRIPNUM})\b\s*(?P<dow>.*?)\s*\bEFFECTIVE\b\s*(?P<expr>.*?)` +
			`(?:\s+CHECK-IN\b.*)?$`,
		Fields: []string{"trip", "dow", "expr"},
	},
	// Header without dates. The trip operates once.
	// Example: #5120 MO TU
	{
		Name:    "bare",
		Pattern: `^#(?P<trip>{TRIPNUM})\b\s*(?P<dow>.*?)(?:\s+CHECK-IN\b.*)?$`,
		Fields:  []string{"trip", "dow"},
	},
}
