package domain

import (
	"fmt"
	"math/rand"
	"time"
)

const SpinCost = 10

type RewardType string

const (
	RewardPoints RewardType = "points"
	RewardTime   RewardType = "time"
)

type ShopItem struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Price int    `json:"price" yaml:"price"`
}

// StreakSaverItemID is the shop item that protects a streak from one missed day.
const StreakSaverItemID = "streak"

type WheelSegment struct {
	Value int        `json:"value" yaml:"value"`
	Type  RewardType `json:"type" yaml:"type"`
}

func (s WheelSegment) Label() string {
	if s.Type == RewardTime {
		return fmt.Sprintf("+%d minutes", s.Value)
	}
	return fmt.Sprintf("+%d beans", s.Value)
}

type WheelOutcome struct {
	Index int        `json:"index"`
	Value int        `json:"value"`
	Type  RewardType `json:"type"`
	Label string     `json:"label"`
}

// Wheel is a fixed set of equally likely slots.
type Wheel struct {
	Segments []WheelSegment
}

// Draw picks one slot uniformly.
func (w Wheel) Draw(r *rand.Rand) WheelOutcome {
	i := r.Intn(len(w.Segments))
	seg := w.Segments[i]
	return WheelOutcome{Index: i, Value: seg.Value, Type: seg.Type, Label: seg.Label()}
}

func (w Wheel) Validate() error {
	if len(w.Segments) == 0 {
		return fmt.Errorf("wheel has no segments")
	}
	for i, s := range w.Segments {
		if s.Value < 0 {
			return fmt.Errorf("segment %d: negative value %d", i, s.Value)
		}
		if s.Type != RewardPoints && s.Type != RewardTime {
			return fmt.Errorf("segment %d: unknown reward type %q", i, s.Type)
		}
	}
	return nil
}

type InventoryEntry struct {
	ItemID     string    `json:"item_id" db:"item_id"`
	ItemName   string    `json:"item_name" db:"item_name"`
	Quantity   int       `json:"quantity" db:"quantity"`
	AcquiredAt time.Time `json:"acquired_at" db:"acquired_at"`
}

type EntryKind string

const (
	EntrySession  EntryKind = "session"
	EntryPurchase EntryKind = "purchase"
	EntrySpin     EntryKind = "spin"
)

// LedgerEntry is one balance movement.
type LedgerEntry struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Kind         EntryKind `json:"kind" db:"kind"`
	Delta        int       `json:"delta" db:"delta"`
	BalanceAfter int       `json:"balance_after" db:"balance_after"`
	Reference    string    `json:"reference" db:"reference"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type PurchaseResult struct {
	Item       ShopItem `json:"item"`
	NewBalance int      `json:"new_balance"`
}

type SpinResult struct {
	Outcome         WheelOutcome `json:"outcome"`
	NewBalance      int          `json:"new_balance"`
	NewBonusMinutes int          `json:"bonus_minutes"`
}
