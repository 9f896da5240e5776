package ledger

import (
	"testing"

	"github.com/mmynk/clubhouse/internal/models"
)

func fee(id, member string, amount int64, status models.FeeStatus) models.FeeRecord {
	return models.FeeRecord{ID: id, MemberID: member, Amount: amount, Purpose: "dues", Status: status}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		fees      []models.FeeRecord
		carryover int64
		want      Summary
	}{
		{
			name:      "empty ledger is just the carryover",
			carryover: 150000,
			want:      Summary{Carryover: 150000, Balance: 150000},
		},
		{
			name: "unpaid fees do not count towards the balance",
			fees: []models.FeeRecord{
				fee("f1", "m1", 50000, models.FeePaid),
				fee("f2", "m2", 30000, models.FeeUnpaid),
				fee("f3", "m1", 20000, models.FeePaid),
			},
			carryover: 100000,
			want:      Summary{Collected: 70000, Unpaid: 30000, Carryover: 100000, Balance: 170000},
		},
		{
			name:      "negative carryover",
			fees:      []models.FeeRecord{fee("f1", "m1", 10000, models.FeePaid)},
			carryover: -25000,
			want:      Summary{Collected: 10000, Carryover: -25000, Balance: -15000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.fees, tt.carryover)
			if got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMemberProgress(t *testing.T) {
	members := []models.Member{
		{ID: "m1", Name: "Kim", Nickname: "Eagle", AnnualFeeTarget: 600000},
		{ID: "m2", Name: "Lee", AnnualFeeTarget: 400000},
	}
	fees := []models.FeeRecord{
		fee("f1", "m1", 500000, models.FeePaid),
		fee("f2", "m1", 200000, models.FeePaid),
		fee("f3", "m2", 100000, models.FeeUnpaid),
		fee("f4", "gone", 30000, models.FeePaid),
		fee("f5", "gone2", 20000, models.FeePaid),
	}

	got := MemberProgress(members, fees)
	if len(got) != 3 {
		t.Fatalf("len(MemberProgress()) = %d, want 3", len(got))
	}

	kim := got[0]
	if kim.Paid != 700000 || kim.Remaining != 0 || kim.Percent() != 100 {
		t.Errorf("Kim = %+v (percent %d), want paid 700000, remaining 0, 100%%", kim, kim.Percent())
	}

	lee := got[1]
	if lee.Paid != 0 || lee.Remaining != 400000 || lee.Percent() != 0 {
		t.Errorf("Lee = %+v, want nothing paid and 400000 remaining", lee)
	}

	unknown := got[2]
	if unknown.Known || unknown.Name != models.UnknownMemberName || unknown.Paid != 50000 {
		t.Errorf("unknown entry = %+v, want %q with 50000 paid", unknown, models.UnknownMemberName)
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		p    Progress
		want int
	}{
		{Progress{Paid: 150000, Target: 600000}, 25},
		{Progress{Paid: 0, Target: 0}, 0},
		{Progress{Paid: 1, Target: 0}, 100},
		{Progress{Paid: 900, Target: 600}, 100},
	}
	for _, tt := range tests {
		if got := tt.p.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	fees := []models.FeeRecord{
		fee("f1", "m1", 1, models.FeePaid),
		fee("f2", "m1", 2, models.FeeUnpaid),
		fee("f3", "m2", 3, models.FeePaid),
	}

	tests := []struct {
		input   string
		wantIDs []string
		wantErr bool
	}{
		{input: "", wantIDs: []string{"f1", "f2", "f3"}},
		{input: "all", wantIDs: []string{"f1", "f2", "f3"}},
		{input: "Paid", wantIDs: []string{"f1", "f3"}},
		{input: "unpaid", wantIDs: []string{"f2"}},
		{input: "overdue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, err := ParseStatusFilter(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStatusFilter(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatusFilter(%q) error = %v", tt.input, err)
			}
			got := Filter(fees, status)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Filter(%s) returned %d fees, want %d", status, len(got), len(tt.wantIDs))
			}
			for i, f := range got {
				if f.ID != tt.wantIDs[i] {
					t.Errorf("Filter(%s)[%d] = %s, want %s", status, i, f.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestSearch(t *testing.T) {
	members := []models.Member{
		{ID: "m1", Name: "김철수", Nickname: "독수리"},
		{ID: "m2", Name: "Lee", Nickname: "BirdieQueen"},
	}
	fees := []models.FeeRecord{
		fee("f1", "m1", 1, models.FeePaid),
		fee("f2", "m2", 2, models.FeePaid),
		fee("f3", "gone", 3, models.FeePaid),
	}

	if got := Search(fees, members, "  "); len(got) != 3 {
		t.Errorf("blank search returned %d fees, want all 3", len(got))
	}
	if got := Search(fees, members, "독수"); len(got) != 1 || got[0].ID != "f1" {
		t.Errorf("nickname search = %+v, want f1", got)
	}
	if got := Search(fees, members, "birdie"); len(got) != 1 || got[0].ID != "f2" {
		t.Errorf("case-insensitive search = %+v, want f2", got)
	}
}

func TestByPurpose(t *testing.T) {
	fees := []models.FeeRecord{
		{ID: "a", Amount: 100, Purpose: "sponsorship", Status: models.FeePaid},
		{ID: "b", Amount: 50, Purpose: "dues", Status: models.FeePaid},
		{ID: "c", Amount: 70, Purpose: "dues", Status: models.FeePaid},
		{ID: "d", Amount: 999, Purpose: "dues", Status: models.FeeUnpaid},
	}
	got := ByPurpose(fees)
	want := []PurposeTotal{{"dues", 120}, {"sponsorship", 100}}
	if len(got) != len(want) {
		t.Fatalf("ByPurpose() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ByPurpose()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
