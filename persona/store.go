package persona

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store 按插入顺序保存分身，仅存在于进程内存中。
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Persona
	intn  func(n int) int
	newID func() string
}

// Option customizes store construction.
type Option func(*Store)

// WithRand overrides the palette picker; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(s *Store) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// WithIDFunc overrides id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		byID:  make(map[string]Persona),
		intn:  rand.Intn,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates fields and appends a new persona with a fresh id and a
// random palette color.
func (s *Store) Create(f Fields) (Persona, error) {
	f, err := f.Normalize()
	if err != nil {
		return Persona{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.freshID()
	if err != nil {
		return Persona{}, err
	}
	p := Persona{
		ID:          id,
		Name:        f.Name,
		Role:        f.Role,
		Platform:    f.Platform,
		Tone:        f.Tone,
		Description: f.Description,
		AvatarColor: s.pickColor(),
	}
	s.byID[id] = p
	s.order = append(s.order, id)
	return p, nil
}

// Update replaces every mutable field of the persona; id and color stay.
func (s *Store) Update(id string, f Fields) (Persona, error) {
	f, err := f.Normalize()
	if err != nil {
		return Persona{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return Persona{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	p.Name = f.Name
	p.Role = f.Role
	p.Platform = f.Platform
	p.Tone = f.Tone
	p.Description = f.Description
	s.byID[id] = p
	return p, nil
}

// Delete removes the persona and reports whether anything was removed.
// Deleting an absent id is a no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Get(id string) (Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// List returns a snapshot in insertion order.
func (s *Store) List() []Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Persona, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Seed inserts fully formed personas, keeping their ids. Blank colors get a
// palette color. The whole batch is rejected if any entry is invalid.
func (s *Store) Seed(ps []Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(ps))
	ready := make([]Persona, 0, len(ps))
	for i, p := range ps {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return fmt.Errorf("seed entry %d: %w", i, &ValidationError{Field: "id", Reason: "is required"})
		}
		if seen[p.ID] {
			return fmt.Errorf("seed entry %d: duplicate id %q", i, p.ID)
		}
		if _, exists := s.byID[p.ID]; exists {
			return fmt.Errorf("seed entry %d: id %q already in store", i, p.ID)
		}
		f, err := p.Fields().Normalize()
		if err != nil {
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
		seen[p.ID] = true
		color := strings.TrimSpace(p.AvatarColor)
		if color == "" {
			color = s.pickColor()
		}
		ready = append(ready, Persona{
			ID:          p.ID,
			Name:        f.Name,
			Role:        f.Role,
			Platform:    f.Platform,
			Tone:        f.Tone,
			Description: f.Description,
			AvatarColor: color,
		})
	}
	for _, p := range ready {
		s.byID[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return nil
}

func (s *Store) freshID() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := s.newID()
		if _, taken := s.byID[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", errors.New("persona: could not allocate a unique id")
}

func (s *Store) pickColor() string {
	return Palette[s.intn(len(Palette))]
}
