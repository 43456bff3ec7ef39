package typegen

// Result holds the output of one translation run.
type Result struct {
	// Text is the generated source artifact
	Text string

	// Declarations counts the items emitted into Text
	Declarations int

	// Files lists every header read, including nested includes, in read order
	Files []string

	// DroppedMacros names integer macros left untyped because no rule
	// matched and their value is outside the default integer range
	DroppedMacros []string

	// Constified names enum variants emitted as constants rather than members
	Constified []string

	// Suppressed names functions and types removed by the blocklists
	Suppressed []string

	// Warnings describe input the engine skipped: unreadable statements,
	// nested includes that were not found
	Warnings []string
}
