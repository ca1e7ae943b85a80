package query

import "github.com/poiesic/newsdesk/core"

// Monitor provides hooks to observe a query as it runs.
type Monitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterSearch(results []*core.SearchResult)
	AfterFactSearch(results []*core.SearchResult)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                         {}
func (n *noopMonitor) AfterEmbedding(_ []float32)             {}
func (n *noopMonitor) AfterSearch(_ []*core.SearchResult)     {}
func (n *noopMonitor) AfterFactSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) Finish(_ *Result)                       {}
