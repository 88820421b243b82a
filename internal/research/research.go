// Package research runs iterative web research: a language model proposes
// search queries, a web-grounded search model answers them, and the
// findings are synthesized into a report.
package research

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/prompt"
)

// Request describes one research task.
type Request struct {
	Query   string
	Breadth int // queries per round
	Depth   int // rounds
	Prompts prompt.Set
}

// Finding is the answer to one executed search.
type Finding struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// Result is the outcome of a research task.
type Result struct {
	Report    string    `json:"report"`
	Queries   []string  `json:"queries"`
	Learnings []Finding `json:"learnings"`
	Sources   []string  `json:"sources,omitempty"`
}

// Researcher is the research backend contract used by discovery.
type Researcher interface {
	Research(ctx context.Context, req Request) (*Result, error)
}
