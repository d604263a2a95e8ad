package chat

// idSet is an insertion-ordered set of client ids. Ordering keeps user
// lists stable between broadcasts.
type idSet struct {
	index map[string]int
	ids   []string
}

func newIDSet() *idSet {
	return &idSet{index: make(map[string]int)}
}

func (s *idSet) has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

func (s *idSet) add(id string) bool {
	if s.has(id) {
		return false
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

func (s *idSet) remove(id string) bool {
	if s == nil {
		return false
	}
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.ids = append(s.ids[:pos], s.ids[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.ids); i++ {
		s.index[s.ids[i]] = i
	}
	return true
}

func (s *idSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// list returns a copy of the ids in insertion order.
func (s *idSet) list() []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s.ids...)
}
