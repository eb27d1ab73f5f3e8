package api

import "sync"

const defaultStoreSize = 256

// AnswerStore keeps the most recent answers for GET /v1/answers/:id.  The
// oldest answer is evicted once the store is full.
type AnswerStore struct {
	mu      sync.Mutex
	limit   int
	order   []string
	answers map[string]AnswerResponse
}

func NewAnswerStore(limit int) *AnswerStore {
	if limit <= 0 {
		limit = defaultStoreSize
	}
	return &AnswerStore{
		limit:   limit,
		answers: make(map[string]AnswerResponse),
	}
}

func (s *AnswerStore) Save(resp AnswerResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[resp.ID]; !ok {
		s.order = append(s.order, resp.ID)
	}
	s.answers[resp.ID] = resp
	for len(s.order) > s.limit {
		delete(s.answers, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *AnswerStore) Get(id string) (AnswerResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.answers[id]
	return resp, ok
}

func (s *AnswerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
