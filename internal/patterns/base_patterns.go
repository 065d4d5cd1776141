package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax.
var BasePatterns = map[string]string{
	// Airport codes.
	"IATA": `[A-Z]{3}\b`,

	// Trip and flight identifiers.
	"TRIPNUM": `\d{1,6}`,
	"FLIGHT":  `\d{1,5}`,

	// Duty-day letter at the start of a leg line.
	"DAY": `[A-E]`,

	// Times. TIME4 is a well-formed HHMM token. TIMETOKEN is anything in a
	// time column so out-of-range or short values can be reported rather
	// than silently skipped.
	"TIME4":     `\d{4}\*?`,
	"TIMETOKEN": `[0-9][0-9:.]{1,5}\*?`,

	// Calendar tokens.
	"MONTH": `(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)`,

	// Credit values: decimal hours (16.28) or hours and minutes (6:30).
	"HOURS": `\d{1,3}(?:[.:]\d{1,2})?`,
}
