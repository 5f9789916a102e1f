package domain

import "fmt"

// BedStatus is the availability state of a bed.
type BedStatus string

// Bed availability states.
const (
	BedAvailable BedStatus = "available"
	BedOccupied  BedStatus = "occupied"
	BedReserved  BedStatus = "reserved"
)

// CleaningStatus is the housekeeping state of a bed.
type CleaningStatus string

// Housekeeping states.
const (
	CleaningClean    CleaningStatus = "clean"
	CleaningDirty    CleaningStatus = "dirty"
	CleaningCleaning CleaningStatus = "cleaning"
)

// RoomType determines the default nightly price of new beds.
type RoomType string

// Room types.
const (
	RoomStandard RoomType = "standard"
	RoomSuperior RoomType = "superior"
)

// GenderPolicy constrains occupant gender per room.
type GenderPolicy string

// Room gender policies.
const (
	PolicyMale   GenderPolicy = "male"
	PolicyFemale GenderPolicy = "female"
	PolicyMixed  GenderPolicy = "mixed"
)

// Gender of a registered guest.
type Gender string

// Guest genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Policy returns the single-gender room policy matching the gender.
func (g Gender) Policy() GenderPolicy {
	if g == GenderMale {
		return PolicyMale
	}
	return PolicyFemale
}

// enumCodec maps canonical codes to the display labels written by the original
// browser tool. Decoding accepts either form.
type enumCodec[T ~string] struct {
	kind   string
	labels map[T]string
}

func (c enumCodec[T]) label(v T) string {
	if l, ok := c.labels[v]; ok {
		return l
	}
	return string(v)
}

func (c enumCodec[T]) parse(text []byte) (T, error) {
	s := string(text)
	for code, l := range c.labels {
		if s == string(code) || s == l {
			return code, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", c.kind, s)
}

var (
	bedStatusCodec = enumCodec[BedStatus]{kind: "bed status", labels: map[BedStatus]string{
		BedAvailable: "空闲",
		BedOccupied:  "已入住",
		BedReserved:  "已预订",
	}}
	cleaningCodec = enumCodec[CleaningStatus]{kind: "cleaning status", labels: map[CleaningStatus]string{
		CleaningClean:    "已清洁",
		CleaningDirty:    "待打扫",
		CleaningCleaning: "清扫中",
	}}
	roomTypeCodec = enumCodec[RoomType]{kind: "room type", labels: map[RoomType]string{
		RoomStandard: "标准间",
		RoomSuperior: "豪华间",
	}}
	policyCodec = enumCodec[GenderPolicy]{kind: "gender policy", labels: map[GenderPolicy]string{
		PolicyMale:   "男宿舍",
		PolicyFemale: "女宿舍",
		PolicyMixed:  "男女混住",
	}}
	genderCodec = enumCodec[Gender]{kind: "gender", labels: map[Gender]string{
		GenderMale:   "男",
		GenderFemale: "女",
	}}
)

// Label returns the front-desk display label.
func (s BedStatus) Label() string { return bedStatusCodec.label(s) }

// Valid reports whether s is a known status.
func (s BedStatus) Valid() bool {
	_, ok := bedStatusCodec.labels[s]
	return ok
}

// UnmarshalText accepts canonical codes and legacy display labels.
func (s *BedStatus) UnmarshalText(text []byte) error {
	v, err := bedStatusCodec.parse(text)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Label returns the front-desk display label.
func (s CleaningStatus) Label() string { return cleaningCodec.label(s) }

// Valid reports whether s is a known cleaning status.
func (s CleaningStatus) Valid() bool {
	_, ok := cleaningCodec.labels[s]
	return ok
}

// UnmarshalText accepts canonical codes and legacy display labels.
func (s *CleaningStatus) UnmarshalText(text []byte) error {
	v, err := cleaningCodec.parse(text)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Label returns the front-desk display label.
func (t RoomType) Label() string { return roomTypeCodec.label(t) }

// Valid reports whether t is a known room type.
func (t RoomType) Valid() bool {
	_, ok := roomTypeCodec.labels[t]
	return ok
}

// UnmarshalText accepts canonical codes and legacy display labels.
func (t *RoomType) UnmarshalText(text []byte) error {
	v, err := roomTypeCodec.parse(text)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Label returns the front-desk display label.
func (p GenderPolicy) Label() string { return policyCodec.label(p) }

// Valid reports whether p is a known policy.
func (p GenderPolicy) Valid() bool {
	_, ok := policyCodec.labels[p]
	return ok
}

// UnmarshalText accepts canonical codes and legacy display labels.
func (p *GenderPolicy) UnmarshalText(text []byte) error {
	v, err := policyCodec.parse(text)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Label returns the front-desk display label.
func (g Gender) Label() string { return genderCodec.label(g) }

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	_, ok := genderCodec.labels[g]
	return ok
}

// UnmarshalText accepts canonical codes and legacy display labels.
func (g *Gender) UnmarshalText(text []byte) error {
	v, err := genderCodec.parse(text)
	if err != nil {
		return err
	}
	*g = v
	return nil
}
