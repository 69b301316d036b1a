package agent_test

import (
	"context"
	"sync"

	"github.com/jkoelker/xen-guest-agent/pkg/collector"
	"github.com/jkoelker/xen-guest-agent/pkg/memory"
	"github.com/jkoelker/xen-guest-agent/pkg/netif"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
)

type stubSource struct {
	initial    []netif.Event
	initialErr error
	stream     chan collector.Result
}

func newStubSource(initial ...netif.Event) *stubSource {
	return &stubSource{initial: initial, stream: make(chan collector.Result)}
}

func (s *stubSource) CollectCurrent(context.Context) ([]netif.Event, error) {
	return s.initial, s.initialErr
}

func (s *stubSource) Stream(context.Context) <-chan collector.Result {
	return s.stream
}

// recordingSchema logs every call as a line for order assertions.
type recordingSchema struct {
	mu       sync.Mutex
	calls    []string
	static   []publisher.StaticInfo
	eventErr error
	notify   chan string
}

func newRecordingSchema() *recordingSchema {
	return &recordingSchema{notify: make(chan string, 64)}
}

func (r *recordingSchema) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	r.notify <- call
}

func (r *recordingSchema) PublishStatic(info publisher.StaticInfo) error {
	r.mu.Lock()
	r.static = append(r.static, info)
	r.mu.Unlock()

	r.record("static")

	return nil
}

func (r *recordingSchema) PublishMemFree(uint64) error {
	r.record("memfree")

	return nil
}

func (r *recordingSchema) PublishEvent(event netif.Event) error {
	r.record(event.String())

	return r.eventErr
}

func (r *recordingSchema) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func (r *recordingSchema) Static() []publisher.StaticInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]publisher.StaticInfo(nil), r.static...)
}

type stubMemory struct {
	total     uint64
	available uint64
	err       error
}

func (m stubMemory) TotalKB() (uint64, error) {
	return m.total, m.err
}

func (m stubMemory) AvailableKB() (uint64, error) {
	return m.available, m.err
}

var _ memory.Source = stubMemory{}
