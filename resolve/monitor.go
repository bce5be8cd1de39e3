package resolve

import "github.com/davidpenaloza/mvp-farmacias-v2/core"

// Monitor receives callbacks as a query moves through the resolution
// pipeline. Implementations can log, trace, or collect metrics per stage.
// All methods are called from the resolving goroutine; implementations
// decide their own thread safety.
type Monitor interface {
	Start(rawQuery string)
	CacheHit(result *core.MatchResult)
	StageResolved(method core.MatchMethod, loc *core.Locality, confidence float64)
	ExtractionResult(extracted string, err error)
	Finish(result *core.MatchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                      {}
func (n *noopMonitor) CacheHit(_ *core.MatchResult)                        {}
func (n *noopMonitor) StageResolved(_ core.MatchMethod, _ *core.Locality, _ float64) {}
func (n *noopMonitor) ExtractionResult(_ string, _ error)                  {}
func (n *noopMonitor) Finish(_ *core.MatchResult)                          {}
