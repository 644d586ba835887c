package search

import "github.com/tmc/langchaingo/schema"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(candidates []schema.Document)
	SemanticHit(doc schema.Document)
	VerbatimHit(doc schema.Document)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterSemanticSearch(_ []schema.Document) {}
func (n *noopMonitor) SemanticHit(_ schema.Document)           {}
func (n *noopMonitor) VerbatimHit(_ schema.Document)           {}
func (n *noopMonitor) Finish(_ []*Result)                      {}
