// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package port

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/finroc/finroc-go/element"
)

var edgeMeter = otel.Meter("github.com/finroc/finroc-go/port")

var (
	publishCountInstrument metric.Int64Counter
	publishSizeInstrument  metric.Int64Counter
	instrumentOnce         sync.Once
)

func instruments() (metric.Int64Counter, metric.Int64Counter) {
	instrumentOnce.Do(func() {
		publishCountInstrument, _ = edgeMeter.Int64Counter(
			"finroc.edge.publish_count",
			metric.WithDescription("Number of values published across an aggregated edge"),
		)
		publishSizeInstrument, _ = edgeMeter.Int64Counter(
			"finroc.edge.publish_bytes",
			metric.WithDescription("Approximate bytes published across an aggregated edge"),
		)
	})
	return publishCountInstrument, publishSizeInstrument
}

// EdgeAggregator is a framework element that groups the ports beneath
// it into a single interface for edge purposes (spec.md §3, Edge:
// "Edge-aggregator framework elements own their outgoing aggregated
// edges"). Concrete interface/group elements embed *EdgeAggregator.
type EdgeAggregator struct {
	*element.Element

	mu              sync.Mutex
	outgoing        map[*EdgeAggregator]*AggregatedEdge
}

// NewEdgeAggregator creates an edge aggregator named name under
// lockOrder, with FlagEdgeAggregator and FlagInterface set.
func NewEdgeAggregator(name string, lockOrder element.LockOrder) *EdgeAggregator {
	ea := &EdgeAggregator{
		Element:  element.NewChild(name, lockOrder),
		outgoing: make(map[*EdgeAggregator]*AggregatedEdge),
	}
	ea.SetFlag(element.FlagEdgeAggregator)
	ea.SetFlag(element.FlagInterface)
	return ea
}

// AggregatedEdge groups every port-level edge sharing the same
// (source-aggregator, destination-aggregator) pair (spec.md §3). It
// tracks how many data-flow and control-flow port-edges it currently
// represents, plus running publish telemetry.
type AggregatedEdge struct {
	Source      *EdgeAggregator
	Destination *EdgeAggregator

	dataFlowEdges    atomic.Int32
	controlFlowEdges atomic.Int32
	publishCount     atomic.Uint64
	publishBytes     atomic.Uint64
}

// DataFlowEdges returns the number of data-flow port-edges this
// aggregated edge currently represents.
func (a *AggregatedEdge) DataFlowEdges() int32 { return a.dataFlowEdges.Load() }

// ControlFlowEdges returns the number of control-flow port-edges this
// aggregated edge currently represents.
func (a *AggregatedEdge) ControlFlowEdges() int32 { return a.controlFlowEdges.Load() }

// PublishCount returns the running count of values published across
// this aggregated edge.
func (a *AggregatedEdge) PublishCount() uint64 { return a.publishCount.Load() }

// PublishBytes returns the running total of bytes published across
// this aggregated edge.
func (a *AggregatedEdge) PublishBytes() uint64 { return a.publishBytes.Load() }

// recordPublish increments the aggregated edge's telemetry counters and
// mirrors them onto the OTel meter, tagged by source/destination
// qualified name.
func (a *AggregatedEdge) recordPublish(ctx context.Context, approxBytes int) {
	a.publishCount.Add(1)
	a.publishBytes.Add(uint64(approxBytes))

	countInst, sizeInst := instruments()
	attrs := metric.WithAttributes(
		attribute.String("source", a.Source.GetQualifiedName()),
		attribute.String("destination", a.Destination.GetQualifiedName()),
	)
	countInst.Add(ctx, 1, attrs)
	sizeInst.Add(ctx, int64(approxBytes), attrs)
}

// linkEdge registers a port-level edge of the given kind (data-flow if
// controlFlow is false) between src and dst's aggregators, creating
// the aggregated edge on first use (spec.md §4.4: "Edge aggregators
// ... mirror each port-level edge onto an aggregated edge shared by
// all pairs of ports between the same two interfaces").
func linkEdge(src, dst *EdgeAggregator, controlFlow bool) *AggregatedEdge {
	src.mu.Lock()
	defer src.mu.Unlock()

	agg, ok := src.outgoing[dst]
	if !ok {
		agg = &AggregatedEdge{Source: src, Destination: dst}
		src.outgoing[dst] = agg
	}
	if controlFlow {
		agg.controlFlowEdges.Add(1)
	} else {
		agg.dataFlowEdges.Add(1)
	}
	return agg
}

// unlinkEdge removes one port-level edge of the given kind from the
// aggregated edge between src and dst, deleting the aggregated edge
// once its last port-level edge is gone (spec.md §4.4: "removing the
// last port-level edge deletes the aggregated edge").
func unlinkEdge(src, dst *EdgeAggregator, controlFlow bool) {
	src.mu.Lock()
	defer src.mu.Unlock()

	agg, ok := src.outgoing[dst]
	if !ok {
		return
	}
	if controlFlow {
		agg.controlFlowEdges.Add(-1)
	} else {
		agg.dataFlowEdges.Add(-1)
	}
	if agg.dataFlowEdges.Load() <= 0 && agg.controlFlowEdges.Load() <= 0 {
		delete(src.outgoing, dst)
	}
}

// edgeTo returns the aggregated edge from ea to dst, if one exists.
func (ea *EdgeAggregator) edgeTo(dst *EdgeAggregator) (*AggregatedEdge, bool) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	agg, ok := ea.outgoing[dst]
	return agg, ok
}

// OutgoingEdges returns a snapshot of this aggregator's outgoing
// aggregated edges, used by the scheduler to build its task graph
// (spec.md §4.6).
func (ea *EdgeAggregator) OutgoingEdges() []*AggregatedEdge {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	edges := make([]*AggregatedEdge, 0, len(ea.outgoing))
	for _, agg := range ea.outgoing {
		edges = append(edges, agg)
	}
	return edges
}
