package occupancy

import "zenstay/pkg/domain"

// VacancyPolicy decides what happens to a room's gender policy when its
// occupants leave.
type VacancyPolicy string

const (
	// VacancyKeep leaves the last derived policy in place.
	VacancyKeep VacancyPolicy = "keep"
	// VacancyReset returns empty rooms to mixed.
	VacancyReset VacancyPolicy = "reset"
)

// Valid reports whether v is empty or a known policy.
func (v VacancyPolicy) Valid() bool {
	return v == "" || v == VacancyKeep || v == VacancyReset
}

// Policy holds the hardening switches applied by Apply.
type Policy struct {
	// RejectOccupiedBeds refuses bookings of unknown or non-available beds.
	RejectOccupiedBeds bool
	// RejectNonPositiveNights refuses extensions of zero or fewer days.
	RejectNonPositiveNights bool
	// RejectEmptyBatch refuses batch creation of zero rooms.
	RejectEmptyBatch bool
	// DefaultVacancy is used when a command leaves its vacancy policy empty.
	DefaultVacancy VacancyPolicy
}

// Strict returns the default validating policy.
func Strict() Policy {
	return Policy{
		RejectOccupiedBeds:      true,
		RejectNonPositiveNights: true,
		RejectEmptyBatch:        true,
		DefaultVacancy:          VacancyKeep,
	}
}

// Lenient returns a policy that accepts double bookings, non-positive
// extensions and empty room batches. Gender policy derivation and checkout
// release rules are the same as under Strict.
func Lenient() Policy {
	return Policy{DefaultVacancy: VacancyKeep}
}

func (p Policy) vacancy(v VacancyPolicy) VacancyPolicy {
	if v != "" {
		return v
	}
	if p.DefaultVacancy != "" {
		return p.DefaultVacancy
	}
	return VacancyKeep
}

// DerivePolicy computes a room's gender policy from the genders of the guests
// currently occupying its beds. A room without occupants gets fallback.
func DerivePolicy(room domain.Room, guests []domain.Guest, fallback domain.GenderPolicy) domain.GenderPolicy {
	genders := make(map[string]domain.Gender, len(guests))
	for _, g := range guests {
		genders[g.ID] = g.Gender
	}
	var male, female bool
	for _, bed := range room.Beds {
		if !bed.Occupied() || bed.GuestID == "" {
			continue
		}
		switch genders[bed.GuestID] {
		case domain.GenderMale:
			male = true
		case domain.GenderFemale:
			female = true
		}
	}
	switch {
	case male && female:
		return domain.PolicyMixed
	case male:
		return domain.PolicyMale
	case female:
		return domain.PolicyFemale
	default:
		return fallback
	}
}
