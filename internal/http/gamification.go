package httpapi

import (
	"fmt"
	"net/http"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/domain"
)

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
		Price  int    `json:"price"`
		Name   string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	res, err := s.Ledger.Purchase(r.Context(), auth.UserID(r.Context()), req.ItemID, req.Price)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, struct {
		Message    string          `json:"message"`
		NewBalance int             `json:"new_balance"`
		Item       domain.ShopItem `json:"item"`
	}{fmt.Sprintf("You bought %s", res.Item.Name), res.NewBalance, res.Item}, http.StatusOK)
}

func (s *Server) spin(w http.ResponseWriter, r *http.Request) {
	res, err := s.Ledger.Spin(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, struct {
		Message      string            `json:"message"`
		Prize        string            `json:"prize"`
		Index        int               `json:"index"`
		Value        int               `json:"value"`
		Type         domain.RewardType `json:"type"`
		NewBalance   int               `json:"new_balance"`
		BonusMinutes int               `json:"bonus_minutes"`
	}{
		Message:      fmt.Sprintf("You won %s", res.Outcome.Label),
		Prize:        res.Outcome.Label,
		Index:        res.Outcome.Index,
		Value:        res.Outcome.Value,
		Type:         res.Outcome.Type,
		NewBalance:   res.NewBalance,
		BonusMinutes: res.NewBonusMinutes,
	}, http.StatusOK)
}

func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	inv, err := s.Ledger.Inventory(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, inv, http.StatusOK)
}

func (s *Server) ledger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Ledger.Entries(r.Context(), auth.UserID(r.Context()), queryLimit(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, entries, http.StatusOK)
}

func (s *Server) shopItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.Catalog.Items, http.StatusOK)
}

func (s *Server) shopWheel(w http.ResponseWriter, r *http.Request) {
	slots := make([]domain.WheelOutcome, len(s.Catalog.Wheel))
	for i, seg := range s.Catalog.Wheel {
		slots[i] = domain.WheelOutcome{Index: i, Value: seg.Value, Type: seg.Type, Label: seg.Label()}
	}
	respondJSON(w, struct {
		Cost     int                   `json:"cost"`
		Segments []domain.WheelOutcome `json:"segments"`
	}{domain.SpinCost, slots}, http.StatusOK)
}
