package schema

import "strings"

// Phase identifies one category of extracted facts.
type Phase int

const (
	ProjectMetadata Phase = iota + 1
	DependencyAnalysis
	SourceCodeAnalysis
	BuildExtraction
	EcosystemAnalysis
	VersionHistory
)

// DefaultPhases is the selector used when none is given.
const DefaultPhases = "metadata,dependencies,source_code,build,ecosystem,version_history"

var phaseTokens = map[Phase]string{
	ProjectMetadata:    "metadata",
	DependencyAnalysis: "dependencies",
	SourceCodeAnalysis: "source_code",
	BuildExtraction:    "build",
	EcosystemAnalysis:  "ecosystem",
	VersionHistory:     "version_history",
}

// AllPhases returns every phase in canonical order.
func AllPhases() []Phase {
	return []Phase{
		ProjectMetadata,
		DependencyAnalysis,
		SourceCodeAnalysis,
		BuildExtraction,
		EcosystemAnalysis,
		VersionHistory,
	}
}

// String returns the selector token for the phase (e.g. "source_code").
func (p Phase) String() string {
	if tok, ok := phaseTokens[p]; ok {
		return tok
	}
	return "unknown"
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	_, ok := phaseTokens[p]
	return ok
}

// Network reports whether extracting the phase talks to the package registry.
func (p Phase) Network() bool {
	return p == EcosystemAnalysis || p == VersionHistory
}

// ParsePhase maps a selector token to its phase.
func ParsePhase(tok string) (Phase, bool) {
	for p, t := range phaseTokens {
		if t == tok {
			return p, true
		}
	}
	return 0, false
}

// ParsePhases parses a comma-separated phase selector.
//
// Tokens are trimmed; empty tokens are ignored. Recognized phases are
// returned in the order given, each at most once. Unrecognized tokens are
// dropped from the selection and returned in unknown.
func ParsePhases(s string) (phases []Phase, unknown []string) {
	seen := make(map[Phase]bool)
	for _, raw := range strings.Split(s, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		p, ok := ParsePhase(tok)
		if !ok {
			unknown = append(unknown, tok)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		phases = append(phases, p)
	}
	return phases, unknown
}
