package sitegen

// Theme defines semantic color mappings using ANSI color indices (0-15) for
// terminal rendering of a generation stream.
type Theme struct {
	Tool    int // Tool request header
	Result  int // Tool result body
	Error   int // Error messages
	Success int // Done marker
	Muted   int // Status lines
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Tool:    3,
		Result:  8,
		Error:   1,
		Success: 2,
		Muted:   8,
	}
}
