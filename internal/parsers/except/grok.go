// Package except provides grok-style pattern definitions for EXCEPT lines.
package except

import "roster_parser/internal/patterns"

// Formats defines the known EXCEPT line formats.
var Formats = []patterns.Format{
	// Example: EXCEPT JAN 21 JAN28
	// Example: EXCEPT FEB. 2, FEB. 9
	{
		Name:    "except",
		Pattern: `^EXCEPT\b[\s:]*(?P<dates>(?:{MONTH}\.?\s*\d{1,2}[\s,]*)+)$`,
		Fields:  []string{"dates"},
	},
	// EXCEPT followed by anything else: extra words between dates, or no
	// recognisable date at all. Matched so the line is reported instead of
	// ignored.
	{
		Name:    "except_unparsed",
		Pattern: `^EXCEPT\b(?P<dates>.*)$`,
		Fields:  []string{"dates"},
	},
}
