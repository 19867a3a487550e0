package vault

import "math/big"

// DepositEntry records one individual deposit. Entries made inside the
// current unharvested window determine the early-withdrawal penalty base.
type DepositEntry struct {
	Amount       *big.Int `json:"amount"`
	Time         uint64   `json:"time"`
	Epoch        uint64   `json:"epoch"`
	TimeWeighted *big.Int `json:"timeWeighted"`
}

// Participant holds one depositor's principal, their time-weighted balance
// used for yield-split math, and the ordered list of deposits backing them.
type Participant struct {
	Address      [20]byte       `json:"address"`
	Balance      *big.Int       `json:"balance"`
	TimeWeighted *big.Int       `json:"timeWeighted"`
	Deposits     []DepositEntry `json:"deposits"`
}

// Clone produces a deep copy so state implementations never hand out live
// internal references.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := &Participant{
		Address:      p.Address,
		Balance:      copyBigInt(p.Balance),
		TimeWeighted: copyBigInt(p.TimeWeighted),
	}
	if len(p.Deposits) > 0 {
		clone.Deposits = make([]DepositEntry, len(p.Deposits))
		for i, entry := range p.Deposits {
			clone.Deposits[i] = DepositEntry{
				Amount:       copyBigInt(entry.Amount),
				Time:         entry.Time,
				Epoch:        entry.Epoch,
				TimeWeighted: copyBigInt(entry.TimeWeighted),
			}
		}
	}
	return clone
}

// Meta carries the vault's global counters and the ordered active-protocol
// routing set.
type Meta struct {
	TotalUserBalance *big.Int `json:"totalUserBalance"`
	LastEpochTime    uint64   `json:"lastEpochTime"`
	EpochsProcessed  uint64   `json:"epochsProcessed"`
	ActiveProtocols  []string `json:"activeProtocols"`
}

// Clone produces a deep copy of the meta record.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	return &Meta{
		TotalUserBalance: copyBigInt(m.TotalUserBalance),
		LastEpochTime:    m.LastEpochTime,
		EpochsProcessed:  m.EpochsProcessed,
		ActiveProtocols:  append([]string(nil), m.ActiveProtocols...),
	}
}

// EpochReport is the immutable record of one processed epoch. It is written
// once during harvest and never rewritten.
type EpochReport struct {
	Epoch           uint64   `json:"epoch"`
	HarvestedAt     uint64   `json:"harvestedAt"`
	Harvested       *big.Int `json:"harvested"`
	Distributed     *big.Int `json:"distributed"`
	Dust            *big.Int `json:"dust"`
	Participants    int      `json:"participants"`
	FailedProtocols []string `json:"failedProtocols,omitempty"`
}

// Clone produces a deep copy of the report.
func (r *EpochReport) Clone() *EpochReport {
	if r == nil {
		return nil
	}
	return &EpochReport{
		Epoch:           r.Epoch,
		HarvestedAt:     r.HarvestedAt,
		Harvested:       copyBigInt(r.Harvested),
		Distributed:     copyBigInt(r.Distributed),
		Dust:            copyBigInt(r.Dust),
		Participants:    r.Participants,
		FailedProtocols: append([]string(nil), r.FailedProtocols...),
	}
}
