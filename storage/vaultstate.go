package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"yieldvault/native/vault"
)

const (
	metaKey        = "vault/meta"
	indexKey       = "vault/index"
	participantKey = "vault/participant/"
	epochKey       = "vault/epoch/"
)

// VaultState persists vault ledger records in a key-value Database using
// JSON encoding. It implements vault.State, so the engine can run unchanged
// on top of MemDB or LevelDB.
type VaultState struct {
	mu sync.Mutex
	db Database
}

// NewVaultState wraps a database as vault state.
func NewVaultState(db Database) *VaultState {
	return &VaultState{db: db}
}

func addressKey(addr [20]byte) []byte {
	return []byte(participantKey + hex.EncodeToString(addr[:]))
}

// GetParticipant implements vault.State.
func (s *VaultState) GetParticipant(addr [20]byte) (*vault.Participant, error) {
	key := addressKey(addr)
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	p := new(vault.Participant)
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("storage: decode participant: %w", err)
	}
	return p, nil
}

// PutParticipant implements vault.State.
func (s *VaultState) PutParticipant(p *vault.Participant) error {
	if p == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addressKey(p.Address)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: encode participant: %w", err)
	}
	if err := s.db.Put(key, raw); err != nil {
		return err
	}
	if !exists {
		return s.appendIndex(p.Address)
	}
	return nil
}

// DeleteParticipant implements vault.State.
func (s *VaultState) DeleteParticipant(addr [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addressKey(addr)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.db.Delete(key); err != nil {
		return err
	}
	return s.removeIndex(addr)
}

// ParticipantAddresses implements vault.State. Addresses keep first-deposit
// order.
func (s *VaultState) ParticipantAddresses() ([][20]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// GetMeta implements vault.State.
func (s *VaultState) GetMeta() (*vault.Meta, error) {
	ok, err := s.db.Has([]byte(metaKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &vault.Meta{TotalUserBalance: big.NewInt(0)}, nil
	}
	raw, err := s.db.Get([]byte(metaKey))
	if err != nil {
		return nil, err
	}
	meta := new(vault.Meta)
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("storage: decode meta: %w", err)
	}
	if meta.TotalUserBalance == nil {
		meta.TotalUserBalance = big.NewInt(0)
	}
	return meta, nil
}

// PutMeta implements vault.State.
func (s *VaultState) PutMeta(meta *vault.Meta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("storage: encode meta: %w", err)
	}
	return s.db.Put([]byte(metaKey), raw)
}

// GetEpochReport implements vault.State.
func (s *VaultState) GetEpochReport(epoch uint64) (*vault.EpochReport, bool, error) {
	key := []byte(epochKey + strconv.FormatUint(epoch, 10))
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	report := new(vault.EpochReport)
	if err := json.Unmarshal(raw, report); err != nil {
		return nil, false, fmt.Errorf("storage: decode epoch report: %w", err)
	}
	return report, true, nil
}

// PutEpochReport implements vault.State. Recorded epochs are immutable, a
// second write for the same epoch is ignored.
func (s *VaultState) PutEpochReport(report *vault.EpochReport) error {
	if report == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := []byte(epochKey + strconv.FormatUint(report.Epoch, 10))
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("storage: encode epoch report: %w", err)
	}
	return s.db.Put(key, raw)
}

func (s *VaultState) readIndex() ([][20]byte, error) {
	ok, err := s.db.Has([]byte(indexKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, err := s.db.Get([]byte(indexKey))
	if err != nil {
		return nil, err
	}
	var encoded []string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("storage: decode index: %w", err)
	}
	addrs := make([][20]byte, 0, len(encoded))
	for _, entry := range encoded {
		decoded, err := hex.DecodeString(entry)
		if err != nil || len(decoded) != 20 {
			return nil, fmt.Errorf("storage: corrupt index entry %q", entry)
		}
		var addr [20]byte
		copy(addr[:], decoded)
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (s *VaultState) writeIndex(addrs [][20]byte) error {
	encoded := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		encoded = append(encoded, hex.EncodeToString(addr[:]))
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(indexKey), raw)
}

func (s *VaultState) appendIndex(addr [20]byte) error {
	addrs, err := s.readIndex()
	if err != nil {
		return err
	}
	return s.writeIndex(append(addrs, addr))
}

func (s *VaultState) removeIndex(addr [20]byte) error {
	addrs, err := s.readIndex()
	if err != nil {
		return err
	}
	for i, existing := range addrs {
		if existing == addr {
			addrs = append(addrs[:i], addrs[i+1:]...)
			break
		}
	}
	return s.writeIndex(addrs)
}
