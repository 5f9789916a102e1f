package memory

import (
	"encoding/json"
	"errors"
	"fmt"

	"zenstay/pkg/domain"
)

// ErrBucketMissing marks a bucket that had no stored payload.
var ErrBucketMissing = errors.New("bucket missing")

// LoadIssue records a bucket that fell back to its seed value while loading.
type LoadIssue struct {
	Bucket domain.Bucket
	Err    error
}

func (i LoadIssue) Error() string {
	return fmt.Sprintf("%s: %v", i.Bucket, i.Err)
}

// EncodeBucket serializes one bucket of state as JSON.
func EncodeBucket(state domain.State, bucket domain.Bucket) ([]byte, error) {
	var v any
	switch bucket {
	case domain.BucketRooms:
		rooms := state.Rooms
		if rooms == nil {
			rooms = []domain.Room{}
		}
		v = rooms
	case domain.BucketGuests:
		guests := state.Guests
		if guests == nil {
			guests = []domain.Guest{}
		}
		v = guests
	case domain.BucketSettings:
		v = state.Settings
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeState rebuilds state from per-bucket payloads. Each bucket is decoded
// independently; a missing, empty or undecodable payload falls back to the
// seed value for that bucket and is reported as a LoadIssue.
func DecodeState(payloads map[domain.Bucket][]byte) (domain.State, []LoadIssue) {
	seed := domain.SeedState()
	state := seed
	var issues []LoadIssue
	for _, bucket := range domain.Buckets() {
		raw, ok := payloads[bucket]
		if !ok || len(raw) == 0 {
			issues = append(issues, LoadIssue{Bucket: bucket, Err: ErrBucketMissing})
			continue
		}
		var err error
		switch bucket {
		case domain.BucketRooms:
			var rooms []domain.Room
			if err = json.Unmarshal(raw, &rooms); err == nil {
				state.Rooms = rooms
			}
		case domain.BucketGuests:
			var guests []domain.Guest
			if err = json.Unmarshal(raw, &guests); err == nil {
				state.Guests = guests
			}
		case domain.BucketSettings:
			var settings domain.SystemSettings
			if err = json.Unmarshal(raw, &settings); err == nil {
				state.Settings = settings
			}
		}
		if err != nil {
			issues = append(issues, LoadIssue{Bucket: bucket, Err: fmt.Errorf("decode: %w", err)})
		}
	}
	return migrateState(state), issues
}

// EncodeState serializes every bucket.
func EncodeState(state domain.State) (map[domain.Bucket][]byte, error) {
	out := make(map[domain.Bucket][]byte, len(domain.Buckets()))
	for _, bucket := range domain.Buckets() {
		data, err := EncodeBucket(state, bucket)
		if err != nil {
			return nil, err
		}
		out[bucket] = data
	}
	return out, nil
}

// migrateState normalizes snapshots written by older front desks: nil
// collections become empty, beds get their owning room id, and a guest id
// on a bed that is not occupied is dropped.
func migrateState(state domain.State) domain.State {
	if state.Rooms == nil {
		state.Rooms = []domain.Room{}
	}
	if state.Guests == nil {
		state.Guests = []domain.Guest{}
	}
	for ri := range state.Rooms {
		room := &state.Rooms[ri]
		if room.Beds == nil {
			room.Beds = []domain.Bed{}
		}
		for bi := range room.Beds {
			bed := &room.Beds[bi]
			if bed.RoomID == "" {
				bed.RoomID = room.ID
			}
			if !bed.Occupied() {
				bed.GuestID = ""
			}
		}
	}
	for gi := range state.Guests {
		if state.Guests[gi].BedIDs == nil {
			state.Guests[gi].BedIDs = []string{}
		}
	}
	return state
}
