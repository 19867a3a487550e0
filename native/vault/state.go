package vault

import (
	"math/big"
	"sync"
)

// State is the persistence contract the vault engine runs against. Get
// methods return deep copies; mutations only take effect through Put calls.
// A nil participant with a nil error means the record does not exist.
type State interface {
	GetParticipant(addr [20]byte) (*Participant, error)
	PutParticipant(p *Participant) error
	DeleteParticipant(addr [20]byte) error
	// ParticipantAddresses lists participants in first-deposit order.
	ParticipantAddresses() ([][20]byte, error)
	GetMeta() (*Meta, error)
	PutMeta(meta *Meta) error
	GetEpochReport(epoch uint64) (*EpochReport, bool, error)
	PutEpochReport(report *EpochReport) error
}

// MemoryState is the in-memory State implementation used by tests and
// single-process deployments that do not need durability.
type MemoryState struct {
	mu           sync.RWMutex
	participants map[[20]byte]*Participant
	order        [][20]byte
	meta         *Meta
	reports      map[uint64]*EpochReport
}

// NewMemoryState constructs an empty in-memory state.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		participants: make(map[[20]byte]*Participant),
		reports:      make(map[uint64]*EpochReport),
	}
}

// GetParticipant implements State.
func (s *MemoryState) GetParticipant(addr [20]byte) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participants[addr].Clone(), nil
}

// PutParticipant implements State.
func (s *MemoryState) PutParticipant(p *Participant) error {
	if p == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.participants[p.Address]; !exists {
		s.order = append(s.order, p.Address)
	}
	s.participants[p.Address] = p.Clone()
	return nil
}

// DeleteParticipant implements State.
func (s *MemoryState) DeleteParticipant(addr [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.participants[addr]; !exists {
		return nil
	}
	delete(s.participants, addr)
	for i, existing := range s.order {
		if existing == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ParticipantAddresses implements State.
func (s *MemoryState) ParticipantAddresses() ([][20]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([][20]byte(nil), s.order...), nil
}

// GetMeta implements State.
func (s *MemoryState) GetMeta() (*Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return &Meta{TotalUserBalance: big.NewInt(0)}, nil
	}
	return s.meta.Clone(), nil
}

// PutMeta implements State.
func (s *MemoryState) PutMeta(meta *Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta.Clone()
	return nil
}

// GetEpochReport implements State.
func (s *MemoryState) GetEpochReport(epoch uint64) (*EpochReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[epoch]
	if !ok {
		return nil, false, nil
	}
	return report.Clone(), true, nil
}

// PutEpochReport implements State.
func (s *MemoryState) PutEpochReport(report *EpochReport) error {
	if report == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.Epoch]; exists {
		// Harvested amounts are immutable once recorded.
		return nil
	}
	s.reports[report.Epoch] = report.Clone()
	return nil
}
