package search

import (
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate stages during a search.
// Callbacks must not alter the search outcome.
type Monitor interface {
	Start(query string, mode Mode)
	AfterLexicalSearch(matches []storage.LexicalMatch, degraded bool)
	AfterVectorSearch(matches []storage.VectorMatch)
	AfterFusion(candidates int)
	AfterFilter(kept int)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)                             {}
func (n *noopMonitor) AfterLexicalSearch(_ []storage.LexicalMatch, _ bool) {}
func (n *noopMonitor) AfterVectorSearch(_ []storage.VectorMatch)           {}
func (n *noopMonitor) AfterFusion(_ int)                                   {}
func (n *noopMonitor) AfterFilter(_ int)                                   {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)                       {}
