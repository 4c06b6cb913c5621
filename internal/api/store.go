package api

import (
	"sync"
	"time"

	"github.com/samcharles93/arbor/internal/compiler"
)

type buildRecord struct {
	Response BuildResponse
	Image    []byte
}

// BuildStore keeps the most recent compilations in memory. Once full, the
// oldest build is evicted.
type BuildStore struct {
	mu     sync.Mutex
	limit  int
	order  []string
	builds map[string]*buildRecord
}

func NewBuildStore(limit int) *BuildStore {
	if limit <= 0 {
		limit = 64
	}
	return &BuildStore{
		limit:  limit,
		builds: make(map[string]*buildRecord),
	}
}

func (s *BuildStore) Create(id string, art *compiler.Artifact, report *compiler.Report, now time.Time) BuildResponse {
	instrs := make([]string, len(art.Instructions))
	for i, in := range art.Instructions {
		instrs[i] = in.String()
	}
	resp := BuildResponse{
		ID:           id,
		Object:       "build",
		CreatedAt:    now.Unix(),
		Graph:        art.Graph.Name,
		Root:         art.Root.Tensor.Name,
		Result:       art.Result.Tensor.Name,
		Config:       art.Config,
		Stats:        art.Stats,
		Instructions: instrs,
		Image:        art.Image.Words(),
		Check:        report,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.builds[id]; !ok {
		s.order = append(s.order, id)
	}
	s.builds[id] = &buildRecord{Response: resp, Image: art.Image.Bytes()}
	for len(s.order) > s.limit {
		delete(s.builds, s.order[0])
		s.order = s.order[1:]
	}
	return resp
}

func (s *BuildStore) Get(id string) (*buildRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.builds[id]
	return rec, ok
}

func (s *BuildStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.builds[id]; !ok {
		return false
	}
	delete(s.builds, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *BuildStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.builds)
}
