package models

import (
	"reflect"
	"testing"
)

func TestOuting_ToggleParticipant(t *testing.T) {
	o := Outing{Participants: []string{"a", "b"}, Groups: []Group{{Name: "1조", MemberIDs: []string{"b"}}}}

	if joined := o.ToggleParticipant("c"); !joined {
		t.Fatal("expected c to join")
	}
	if joined := o.ToggleParticipant("b"); joined {
		t.Fatal("expected b to leave")
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(o.Participants, want) {
		t.Fatalf("participants = %v, want %v", o.Participants, want)
	}
	if got := o.Groups[0].MemberIDs; !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("groups changed: %v", got)
	}
}

func TestOuting_ToggleDoesNotAliasCopies(t *testing.T) {
	o := Outing{Participants: []string{"a", "b", "c"}}
	copyOf := o
	o.ToggleParticipant("a")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(copyOf.Participants, want) {
		t.Fatalf("copy modified: %v", copyOf.Participants)
	}
}

func TestOuting_Roster(t *testing.T) {
	o := Outing{
		Participants: []string{"a", "b"},
		Groups: []Group{
			{Name: "1조", MemberIDs: []string{"b", "c"}},
			{Name: "2조", MemberIDs: []string{"", "d", "c"}},
		},
	}
	if got, want := o.Roster(), []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Roster() = %v, want %v", got, want)
	}
	if !o.IsParticipant("a") || o.IsParticipant("d") {
		t.Fatal("IsParticipant only looks at participants")
	}
}

func TestOuting_SetParticipantsDedupes(t *testing.T) {
	var o Outing
	o.SetParticipants([]string{"a", "b", "a"})
	if want := []string{"a", "b"}; !reflect.DeepEqual(o.Participants, want) {
		t.Fatalf("participants = %v, want %v", o.Participants, want)
	}
}

func TestOuting_Meals(t *testing.T) {
	var o Outing
	if !o.Lunch().IsZero() {
		t.Fatal("expected no lunch")
	}
	o.SetDinner(MealPlan{Location: "포천 한우", Time: "18:30"})
	if o.DinnerLocation != "포천 한우" || o.Dinner().Time != "18:30" {
		t.Fatalf("dinner = %+v", o.Dinner())
	}
}

func TestFeeRecord_Toggle(t *testing.T) {
	f := FeeRecord{Status: FeeUnpaid}
	f.Toggle()
	if f.Status != FeePaid {
		t.Fatalf("status = %s, want paid", f.Status)
	}
	f.Toggle()
	if f.Status != FeeUnpaid {
		t.Fatalf("status = %s, want unpaid", f.Status)
	}
	if FeeStatus("overdue").Valid() {
		t.Fatal("unexpected valid status")
	}
}

func TestMemberIndex_Name(t *testing.T) {
	idx := IndexMembers([]Member{{ID: "1", Name: "김철수"}})
	if got := idx.Name("1"); got != "김철수" {
		t.Fatalf("Name(1) = %q", got)
	}
	if got := idx.Name("gone"); got != UnknownMemberName {
		t.Fatalf("Name(gone) = %q", got)
	}
}

func TestRoundScore_IsExternal(t *testing.T) {
	tests := []struct {
		outingID string
		want     bool
	}{
		{"", true},
		{ExternalOutingID, true},
		{"o1", false},
	}
	for _, tt := range tests {
		if got := (RoundScore{OutingID: tt.outingID}).IsExternal(); got != tt.want {
			t.Errorf("IsExternal(%q) = %v, want %v", tt.outingID, got, tt.want)
		}
	}
}

func TestPartialSnapshot_CountsAndFull(t *testing.T) {
	fees := []FeeRecord{{ID: "f1"}, {ID: "f2"}}
	at := int64(1_700_000_000_000)
	p := PartialSnapshot{Fees: &fees, UpdatedAt: &at}

	m, o, s, f := p.Counts()
	if m != -1 || o != -1 || s != -1 || f != 2 {
		t.Fatalf("Counts() = %d %d %d %d", m, o, s, f)
	}
	if p.IsEmpty() {
		t.Fatal("expected non-empty")
	}

	full := p.Full()
	if full.Members == nil || full.Outings == nil || full.Scores == nil {
		t.Fatal("Full must fill absent collections")
	}
	if full.UpdatedAt != at || len(full.Fees) != 2 {
		t.Fatalf("Full() = %+v", full)
	}
}

func TestSnapshot_NormalizeOutings(t *testing.T) {
	s := Snapshot{Outings: []Outing{{ID: "o1", Groups: []Group{{Name: "1조", Guests: []string{}}}}}}.Normalize()
	o := s.Outings[0]
	if o.Participants == nil || o.Groups[0].MemberIDs == nil {
		t.Fatal("required lists must be non-nil")
	}
	if o.Groups[0].Guests != nil {
		t.Fatal("empty guests should be nil")
	}

	var empty Snapshot
	if p := empty.Partial(); p.Members == nil || len(*p.Members) != 0 {
		t.Fatal("Partial must carry every collection")
	}
}
