package search

import "github.com/poiesic/recall/core"

// SearchMonitor provides hooks to observe the stages of a search request.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(queryCount int)
	AfterBranchSearch(branch string, query int, hits []Hit)
	AfterFusion(query int, matches []*core.Match)
	HydrationMiss(parentID string)
	Finish(results [][]*core.Match)
}

// NoopMonitor is a no-op implementation of SearchMonitor.
type NoopMonitor struct{}

var _ SearchMonitor = (*NoopMonitor)(nil)

func (n *NoopMonitor) Start(_ int)                                {}
func (n *NoopMonitor) AfterBranchSearch(_ string, _ int, _ []Hit) {}
func (n *NoopMonitor) AfterFusion(_ int, _ []*core.Match)         {}
func (n *NoopMonitor) HydrationMiss(_ string)                     {}
func (n *NoopMonitor) Finish(_ [][]*core.Match)                   {}
