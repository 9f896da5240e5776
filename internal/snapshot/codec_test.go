package snapshot

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/records"
	"github.com/mmynk/clubhouse/internal/storage/memory"
)

var textGen = rapid.StringOf(rapid.RuneFrom([]rune{' ', '"', '\\', '<', '&', '\n', '%', '+', '#'},
	unicode.Latin, unicode.Hangul, unicode.Han, unicode.Digit))

func optionalInt(t *rapid.T, label string) *int {
	if !rapid.Bool().Draw(t, label+"Set") {
		return nil
	}
	v := rapid.IntRange(0, 18).Draw(t, label)
	return &v
}

var memberGen = rapid.Custom(func(t *rapid.T) models.Member {
	return models.Member{
		ID:              rapid.StringMatching(`[a-f0-9-]{1,36}`).Draw(t, "id"),
		Name:            textGen.Draw(t, "name"),
		Nickname:        textGen.Draw(t, "nickname"),
		Handicap:        rapid.IntRange(0, models.MaxHandicap).Draw(t, "handicap"),
		Avatar:          textGen.Draw(t, "avatar"),
		AnnualFeeTarget: rapid.Int64Range(0, 10_000_000).Draw(t, "target"),
	}
})

var groupGen = rapid.Custom(func(t *rapid.T) models.Group {
	return models.Group{
		Name:      textGen.Draw(t, "name"),
		MemberIDs: rapid.SliceOfN(rapid.StringMatching(`m[0-9]{1,3}`), 0, 4).Draw(t, "memberIds"),
		Guests:    rapid.SliceOfN(textGen, 0, 2).Draw(t, "guests"),
		TeeTime:   rapid.StringMatching(`([0-2][0-9]:[0-5][0-9])?`).Draw(t, "teeTime"),
	}
})

var outingGen = rapid.Custom(func(t *rapid.T) models.Outing {
	o := models.Outing{
		ID:           rapid.StringMatching(`o[0-9]{1,4}`).Draw(t, "id"),
		Title:        textGen.Draw(t, "title"),
		Date:         rapid.StringMatching(`20[0-9]{2}-[01][0-9]-[0-3][0-9]`).Draw(t, "date"),
		CourseName:   textGen.Draw(t, "course"),
		Location:     textGen.Draw(t, "location"),
		Status:       rapid.SampledFrom([]models.OutingStatus{models.OutingUpcoming, models.OutingCompleted, models.OutingCancelled}).Draw(t, "status"),
		Participants: rapid.SliceOfN(rapid.StringMatching(`m[0-9]{1,3}`), 0, 6).Draw(t, "participants"),
		Groups:       rapid.SliceOfN(groupGen, 0, 3).Draw(t, "groups"),
	}
	o.SetLunch(models.MealPlan{Location: textGen.Draw(t, "lunch"), Link: textGen.Draw(t, "lunchLink")})
	o.SetDinner(models.MealPlan{Time: textGen.Draw(t, "dinnerTime")})
	return o
})

var scoreGen = rapid.Custom(func(t *rapid.T) models.RoundScore {
	s := models.RoundScore{
		ID:          rapid.StringMatching(`s[0-9]{1,4}`).Draw(t, "id"),
		OutingID:    rapid.SampledFrom([]string{"o1", "o2", models.ExternalOutingID}).Draw(t, "outingId"),
		MemberID:    rapid.StringMatching(`m[0-9]{1,3}`).Draw(t, "memberId"),
		TotalScore:  rapid.IntRange(models.MinPlausibleScore, models.MaxPlausibleScore).Draw(t, "total"),
		Putts:       optionalInt(t, "putts"),
		FairwaysHit: optionalInt(t, "fairways"),
		Date:        rapid.StringMatching(`20[0-9]{2}-[01][0-9]-[0-3][0-9]`).Draw(t, "date"),
	}
	if rapid.Bool().Draw(t, "photo") {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "image")
		s.ImageURL = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)
	}
	return s
})

var feeGen = rapid.Custom(func(t *rapid.T) models.FeeRecord {
	return models.FeeRecord{
		ID:       rapid.StringMatching(`f[0-9]{1,4}`).Draw(t, "id"),
		MemberID: rapid.StringMatching(`m[0-9]{1,3}`).Draw(t, "memberId"),
		Amount:   rapid.Int64Range(1, 5_000_000).Draw(t, "amount"),
		Date:     rapid.StringMatching(`20[0-9]{2}-[01][0-9]-[0-3][0-9]`).Draw(t, "date"),
		Purpose:  textGen.Draw(t, "purpose"),
		Status:   rapid.SampledFrom([]models.FeeStatus{models.FeePaid, models.FeeUnpaid}).Draw(t, "status"),
		Memo:     textGen.Draw(t, "memo"),
	}
})

var snapshotGen = rapid.Custom(func(t *rapid.T) models.Snapshot {
	return models.Snapshot{
		Members:   rapid.SliceOfN(memberGen, 0, 5).Draw(t, "members"),
		Outings:   rapid.SliceOfN(outingGen, 0, 3).Draw(t, "outings"),
		Scores:    rapid.SliceOfN(scoreGen, 0, 4).Draw(t, "scores"),
		Fees:      rapid.SliceOfN(feeGen, 0, 4).Draw(t, "fees"),
		Carryover: rapid.Int64Range(-1<<53, 1<<53).Draw(t, "carryover"),
		UpdatedAt: rapid.Int64Range(0, 1<<50).Draw(t, "updatedAt"),
		Version:   models.SnapshotVersion,
	}
})

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := snapshotGen.Draw(t, "snapshot").Normalize()

		token, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if strings.ContainsAny(token, "+/=# \n") {
			t.Fatalf("token %q is not fragment safe", token)
		}

		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !assert.ObjectsAreEqual(want, got.Full()) {
			t.Fatalf("round trip mismatch:\nwant %+v\n got %+v", want, got.Full())
		}
	})
}

func TestBuildEncodeDecode_ThreeMembers(t *testing.T) {
	ctx := context.Background()
	store := records.New(memory.New())
	members := []models.Member{
		{ID: "m1", Name: "김철수", Nickname: "독수리", Handicap: 12, Avatar: "https://example.test/a.png", AnnualFeeTarget: 300000},
		{ID: "m2", Name: "이영희", Handicap: 24, AnnualFeeTarget: 300000},
		{ID: "m3", Name: "Pat", Handicap: 0},
	}
	require.NoError(t, store.SaveMembers(ctx, members))
	require.NoError(t, store.SaveCarryover(ctx, 50000))

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	snap := NewBuilder(store, func() time.Time { return now }).Build(ctx)
	assert.Equal(t, now.UnixMilli(), snap.UpdatedAt)
	assert.Equal(t, "2024-05-01T09:00:00Z", snap.ExportedAt)

	token, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(token)
	require.NoError(t, err)
	require.NotNil(t, got.Members)
	assert.Equal(t, members, *got.Members)
	require.NotNil(t, got.Outings)
	assert.Empty(t, *got.Outings)
	require.NotNil(t, got.Carryover)
	assert.Equal(t, int64(50000), *got.Carryover)
}

func TestBuild_EmptyStore(t *testing.T) {
	snap := NewBuilder(records.New(memory.New()), nil).Build(context.Background())
	assert.NotNil(t, snap.Members)
	assert.NotNil(t, snap.Outings)
	assert.NotNil(t, snap.Scores)
	assert.NotNil(t, snap.Fees)
	assert.Zero(t, snap.Carryover)
	assert.Equal(t, models.SnapshotVersion, snap.Version)
}

func TestDecode_Failures(t *testing.T) {
	valid, err := Encode(models.Snapshot{Members: []models.Member{{ID: "m1", Name: "A very long member name"}}, Carryover: 10})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  Kind
	}{
		{name: "empty", token: "", kind: KindEmpty},
		{name: "whitespace only", token: " \n\t ", kind: KindEmpty},
		{name: "not base64", token: "not-a-valid-token", kind: KindCorrupt},
		{name: "truncated", token: valid[:len(valid)/2], kind: KindCorrupt},
		{name: "binary payload", token: base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00}), kind: KindCorrupt},
		{name: "plain text", token: base64.RawURLEncoding.EncodeToString([]byte("hello club")), kind: KindMalformed},
		{name: "json array", token: base64.RawURLEncoding.EncodeToString([]byte(`[1,2,3]`)), kind: KindMalformed},
		{name: "wrong field type", token: base64.RawURLEncoding.EncodeToString([]byte(`{"members":"everyone"}`)), kind: KindMalformed},
		{name: "trailing data", token: base64.RawURLEncoding.EncodeToString([]byte(`{} {}`)), kind: KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBrokenToken))

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.kind, decodeErr.Kind)
			assert.NotEmpty(t, decodeErr.Guidance())
			assert.True(t, got.IsEmpty())
		})
	}
}

func TestDecode_Accepts(t *testing.T) {
	payload := `{"members":[{"id":"m1","name":"홍길동 & co","handicap":10,"avatar":"","annualFeeTarget":0}],"carryover":1500,"updatedAt":99}`

	tests := []struct {
		name  string
		token string
	}{
		{name: "url alphabet unpadded", token: base64.RawURLEncoding.EncodeToString([]byte(payload))},
		{name: "std alphabet padded", token: base64.StdEncoding.EncodeToString([]byte(payload))},
		{name: "wrapped by a chat client", token: wrap(base64.StdEncoding.EncodeToString([]byte(payload)), 20)},
		{name: "legacy percent encoded", token: base64.StdEncoding.EncodeToString([]byte(encodeURIComponent(payload)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.token)
			require.NoError(t, err)
			require.NotNil(t, got.Members)
			assert.Equal(t, "홍길동 & co", (*got.Members)[0].Name)
			assert.Equal(t, int64(1500), *got.Carryover)
			assert.Equal(t, int64(99), got.Timestamp())
			assert.Nil(t, got.Fees)
		})
	}
}

func TestDecode_EmptyObjectIsValid(t *testing.T) {
	got, err := Decode(base64.RawURLEncoding.EncodeToString([]byte(`{}`)))
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Zero(t, got.Timestamp())
}

func TestDecode_NullFieldsAreAbsent(t *testing.T) {
	got, err := Decode(base64.RawURLEncoding.EncodeToString([]byte(`{"members":null,"fees":[],"carryover":null}`)))
	require.NoError(t, err)
	assert.Nil(t, got.Members)
	assert.Nil(t, got.Carryover)
	require.NotNil(t, got.Fees)
	assert.Empty(t, *got.Fees)
}

func wrap(s string, width int) string {
	var b strings.Builder
	for i := 0; i < len(s); i += width {
		end := min(i+width, len(s))
		b.WriteString(s[i:end])
		b.WriteString("\n")
	}
	return b.String()
}

// encodeURIComponent mirrors the browser function closely enough for JSON.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
