package core

import (
	"context"
	"fmt"

	"zenstay/internal/occupancy"
	"zenstay/pkg/domain"
)

const (
	ruleBedGuestIntegrity = occupancy.RuleBedGuestIntegrity
	ruleRoomGenderMix     = "room_gender_mix"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewBedGuestIntegrityRule())
	engine.Register(NewRoomGenderMixRule())
	return engine
}

type bedGuestIntegrityRule struct{}

// NewBedGuestIntegrityRule blocks any state whose beds and guests reference
// each other inconsistently.
func NewBedGuestIntegrityRule() domain.Rule { return bedGuestIntegrityRule{} }

func (bedGuestIntegrityRule) Name() string { return ruleBedGuestIntegrity }

func (bedGuestIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	state := domain.State{Rooms: view.ListRooms(), Guests: view.ListGuests(), Settings: view.Settings()}
	return domain.Result{Violations: occupancy.CheckInvariants(state)}, nil
}

type roomGenderMixRule struct{}

// NewRoomGenderMixRule warns when a single-gender room holds a guest of the
// other gender.
func NewRoomGenderMixRule() domain.Rule { return roomGenderMixRule{} }

func (roomGenderMixRule) Name() string { return ruleRoomGenderMix }

func (roomGenderMixRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, room := range view.ListRooms() {
		if room.GenderPolicy == domain.PolicyMixed {
			continue
		}
		for _, bed := range room.Beds {
			if !bed.Occupied() || bed.GuestID == "" {
				continue
			}
			guest, ok := view.FindGuest(bed.GuestID)
			if !ok || guest.Gender.Policy() == room.GenderPolicy {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     ruleRoomGenderMix,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("room %s is %s but bed %s holds a %s guest", room.Number, room.GenderPolicy, bed.ID, guest.Gender),
				Entity:   domain.EntityRoom,
				EntityID: room.ID,
			})
		}
	}
	return res, nil
}
