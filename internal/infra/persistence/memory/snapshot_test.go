package memory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"zenstay/pkg/domain"
)

func TestDecodeStateFallsBackPerBucket(t *testing.T) {
	payloads, err := EncodeState(domain.SeedState())
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.CheckOutTime = "11:30"
	payloads[domain.BucketSettings], err = json.Marshal(settings)
	require.NoError(t, err)
	payloads[domain.BucketRooms] = []byte(`{not json`)
	delete(payloads, domain.BucketGuests)

	state, issues := DecodeState(payloads)
	require.Equal(t, "11:30", state.Settings.CheckOutTime)
	require.Equal(t, domain.SeedRooms(), state.Rooms)
	require.Equal(t, domain.SeedGuests(), state.Guests)
	require.Len(t, issues, 2)
	require.Equal(t, domain.BucketRooms, issues[0].Bucket)
	require.Equal(t, domain.BucketGuests, issues[1].Bucket)
	require.True(t, errors.Is(issues[1].Err, ErrBucketMissing))
	require.Contains(t, issues[0].Error(), "ZENSTAY_ROOMS_DATA")
}

func TestDecodeStateAcceptsBrowserSnapshot(t *testing.T) {
	payloads := map[domain.Bucket][]byte{
		domain.BucketRooms: []byte(`[{"id":"r9","number":"909","type":"标准间","genderPolicy":"男女混住","beds":[
			{"id":"b9","name":"床位 A","status":"空闲","cleaningStatus":"已清洁","pricePerNight":50},
			{"id":"b10","name":"床位 B","roomId":"r9","status":"已入住","cleaningStatus":"已清洁","guestId":"g-1716","pricePerNight":50}]}]`),
		domain.BucketGuests:   []byte(`[{"id":"g-1716","name":"李四","gender":"女","bedIds":["b10"],"totalPaid":50,"peopleCount":1,"checkIn":"2024-06-01","checkOut":"2024-06-02"}]`),
		domain.BucketSettings: []byte(`{"standardPrice":50,"superiorPrice":85,"checkOutTime":"12:00","overtimeAlertMinutes":30}`),
	}
	state, issues := DecodeState(payloads)
	require.Empty(t, issues)
	require.Equal(t, "r9", state.Rooms[0].Beds[0].RoomID, "missing roomId is filled from the owning room")
	require.Equal(t, domain.PolicyMixed, state.Rooms[0].GenderPolicy)
	require.Equal(t, domain.GenderFemale, state.Guests[0].Gender)
}

func TestEncodeBucketEmptyCollections(t *testing.T) {
	data, err := EncodeBucket(domain.State{}, domain.BucketRooms)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	_, err = EncodeBucket(domain.State{}, domain.Bucket("OTHER"))
	require.Error(t, err)
}
