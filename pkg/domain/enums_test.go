package domain

import "testing"

func TestEnumLabelsRoundTrip(t *testing.T) {
	cases := []struct {
		label string
		parse func(string) (string, error)
	}{
		{"空闲", parseAs[BedStatus]},
		{"清扫中", parseAs[CleaningStatus]},
		{"豪华间", parseAs[RoomType]},
		{"男女混住", parseAs[GenderPolicy]},
		{"男", parseAs[Gender]},
	}
	want := []string{"available", "cleaning", "superior", "mixed", "male"}
	for i, tc := range cases {
		got, err := tc.parse(tc.label)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.label, err)
		}
		if got != want[i] {
			t.Fatalf("parse %q: expected %s, got %s", tc.label, want[i], got)
		}
		if again, err := tc.parse(got); err != nil || again != got {
			t.Fatalf("canonical code %q should parse to itself", got)
		}
	}
}

type textEnum[T any] interface {
	*T
	UnmarshalText([]byte) error
}

func parseAs[T ~string, P textEnum[T]](s string) (string, error) {
	var v T
	err := P(&v).UnmarshalText([]byte(s))
	return string(v), err
}

func TestEnumRejectsUnknown(t *testing.T) {
	var s BedStatus
	if err := s.UnmarshalText([]byte("broken")); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if BedStatus("broken").Valid() {
		t.Fatalf("unknown status should not be valid")
	}
	if BedStatus("broken").Label() != "broken" {
		t.Fatalf("unknown status label should fall back to code")
	}
}

func TestGenderPolicyAndLabels(t *testing.T) {
	if GenderMale.Policy() != PolicyMale || GenderFemale.Policy() != PolicyFemale {
		t.Fatalf("gender policy mapping broken")
	}
	if RoomStandard.Label() != "标准间" || PolicyFemale.Label() != "女宿舍" {
		t.Fatalf("unexpected labels")
	}
	if !CleaningDirty.Valid() || !RoomSuperior.Valid() || !PolicyMixed.Valid() || !GenderFemale.Valid() {
		t.Fatalf("known codes must be valid")
	}
}

func TestSettingsPriceFor(t *testing.T) {
	s := DefaultSettings()
	if !s.PriceFor(RoomSuperior).Equal(s.SuperiorPrice) || !s.PriceFor(RoomStandard).Equal(s.StandardPrice) {
		t.Fatalf("price lookup mismatch")
	}
}
