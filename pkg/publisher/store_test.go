package publisher_test

import (
	"errors"
	"strings"
	"sync"
)

type storeOp struct {
	Op    string
	Key   string
	Value string
}

// recordingStore keeps every operation and a flat view of the tree.
type recordingStore struct {
	mu   sync.Mutex
	ops  []storeOp
	tree map[string]string
	fail map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{tree: map[string]string{}, fail: map[string]error{}}
}

func (s *recordingStore) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[key]; err != nil {
		return err
	}

	s.ops = append(s.ops, storeOp{Op: "write", Key: key, Value: value})
	s.tree[key] = value

	return nil
}

func (s *recordingStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[key]; err != nil {
		return err
	}

	s.ops = append(s.ops, storeOp{Op: "delete", Key: key})

	for existing := range s.tree {
		if existing == key || strings.HasPrefix(existing, key+"/") {
			delete(s.tree, existing)
		}
	}

	return nil
}

func (s *recordingStore) Ops() []storeOp {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]storeOp(nil), s.ops...)
}

func (s *recordingStore) Tree() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.tree))
	for k, v := range s.tree {
		out[k] = v
	}

	return out
}

func (s *recordingStore) FailOn(key string, err error) {
	s.mu.Lock()
	s.fail[key] = err
	s.mu.Unlock()
}

var errStore = errors.New("store unavailable")
