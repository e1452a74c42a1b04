package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

type memChunk struct {
	docID    uuid.UUID
	position int
	content  string
	terms    map[string]struct{}
}

// Memory is a process-local Store that ranks chunks by shared terms with
// the query. It needs no embedding provider.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string][]memChunk
}

func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string][]memChunk)}
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) > 1 {
			out[f] = struct{}{}
		}
	}
	return out
}

func (m *Memory) EnsureNamespace(ctx context.Context, companyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := Namespace(companyID)
	if _, ok := m.namespaces[ns]; !ok {
		m.namespaces[ns] = nil
	}
	return nil
}

func (m *Memory) Put(ctx context.Context, companyID, docID uuid.UUID, text string) error {
	chunks := Split(text, DefaultChunkSize, DefaultChunkOverlap)

	m.mu.Lock()
	defer m.mu.Unlock()

	ns := Namespace(companyID)
	kept := removeDoc(m.namespaces[ns], docID)
	for i, c := range chunks {
		kept = append(kept, memChunk{docID: docID, position: i, content: c, terms: terms(c)})
	}
	m.namespaces[ns] = kept
	return nil
}

func (m *Memory) Query(ctx context.Context, companyID uuid.UUID, text string, k int) ([]Snippet, error) {
	q := terms(text)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snippet, 0)
	for _, c := range m.namespaces[Namespace(companyID)] {
		hits := 0
		for t := range q {
			if _, ok := c.terms[t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, Snippet{
			DocumentID: c.docID,
			Position:   c.position,
			Content:    c.content,
			Score:      float64(hits) / float64(len(q)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, companyID, docID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := Namespace(companyID)
	m.namespaces[ns] = removeDoc(m.namespaces[ns], docID)
	return nil
}

func (m *Memory) DeleteNamespace(ctx context.Context, companyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.namespaces, Namespace(companyID))
	return nil
}

func removeDoc(chunks []memChunk, docID uuid.UUID) []memChunk {
	kept := chunks[:0:0]
	for _, c := range chunks {
		if c.docID != docID {
			kept = append(kept, c)
		}
	}
	return kept
}

var _ Store = (*Memory)(nil)
