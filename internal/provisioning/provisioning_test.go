package provisioning

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"
	"time"

	"hostelcore/pkg/domain"
)

func TestRoomsLayout(t *testing.T) {
	rooms := Rooms()
	if len(rooms) != 468 {
		t.Fatalf("expected 468 rooms, got %d", len(rooms))
	}
	seen := map[string]bool{}
	perFloor := map[int]int{}
	for _, r := range rooms {
		if seen[r.RoomNumber] {
			t.Fatalf("duplicate room %s", r.RoomNumber)
		}
		seen[r.RoomNumber] = true
		if r.Capacity != 2 && r.Capacity != 3 {
			t.Fatalf("room %s has capacity %d", r.RoomNumber, r.Capacity)
		}
		floor, err := domain.FloorOf(r.RoomNumber)
		if err != nil {
			t.Fatalf("room %s: %v", r.RoomNumber, err)
		}
		perFloor[floor]++
	}
	for floor := 1; floor <= 12; floor++ {
		if perFloor[floor] != 39 {
			t.Fatalf("floor %d has %d rooms", floor, perFloor[floor])
		}
	}
	for _, number := range []string{"101", "139", "939", "1001", "1039", "1239"} {
		if !seen[number] {
			t.Fatalf("expected room %s in layout", number)
		}
	}
	if rooms[0].RoomNumber != "101" || rooms[0].Capacity != 3 || rooms[2].Capacity != 2 {
		t.Fatalf("unexpected first rooms %+v", rooms[:3])
	}
	if Beds() != 12*99 {
		t.Fatalf("unexpected bed count %d", Beds())
	}
}

func TestBranchCode(t *testing.T) {
	if BranchCode("CSE-AIML") != "66" || BranchCode("CSBS") != "70" || BranchCode("unknown") != "00" {
		t.Fatalf("branch codes mismatch")
	}
	for _, b := range Branches {
		if BranchCode(b) == "00" {
			t.Fatalf("branch %s lacks a code", b)
		}
	}
}

var rollPattern = regexp.MustCompile(`^2[1-4]071a\d{2}\d{2}[0-9a-f]$`)

func TestRollNumberShapeAndUniqueness(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(1, 2)), nil)
	used := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		roll, err := g.RollNumber(1+i%4, Branches[i%len(Branches)], used)
		if err != nil {
			t.Fatalf("roll number: %v", err)
		}
		if !rollPattern.MatchString(roll) {
			t.Fatalf("roll number %q does not match expected shape", roll)
		}
	}
	if len(used) != 200 {
		t.Fatalf("expected 200 unique roll numbers, got %d", len(used))
	}
	if roll, _ := g.RollNumber(1, "CSE", map[string]struct{}{}); !strings.HasPrefix(roll, "24071a05") {
		t.Fatalf("first year CSE roll should start with 24071a05, got %s", roll)
	}
}

func TestRollNumberFallsBackToClockSuffix(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_012_345)
	g := NewGenerator(rand.New(rand.NewPCG(3, 4)), func() time.Time { return fixed })
	used := map[string]struct{}{}
	// Exhaust every random suffix for year 4 IT.
	for d := 10; d < 100; d++ {
		for _, h := range hexChars {
			used["21071a54"+itoa2(d)+string(h)] = struct{}{}
		}
	}
	first, err := g.RollNumber(4, "IT", used)
	if err != nil {
		t.Fatalf("roll number: %v", err)
	}
	if first != "21071a5412345" {
		t.Fatalf("expected clock suffix roll, got %s", first)
	}
	second, err := g.RollNumber(4, "IT", used)
	if err != nil {
		t.Fatalf("roll number: %v", err)
	}
	if second != "21071a5412346" {
		t.Fatalf("expected bumped clock suffix, got %s", second)
	}
}

func TestRollNumberReportsExhaustedPrefix(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(7, 8)), nil)
	used := make(map[string]struct{}, 90*len(hexChars)+clockSuffixSpace)
	for d := 10; d < 100; d++ {
		for _, h := range hexChars {
			used["21071a54"+itoa2(d)+string(h)] = struct{}{}
		}
	}
	for suffix := range clockSuffixSpace {
		used[fmt.Sprintf("21071a54%05d", suffix)] = struct{}{}
	}
	roll, err := g.RollNumber(4, "IT", used)
	if !errors.Is(err, ErrRollNumbersExhausted) {
		t.Fatalf("expected ErrRollNumbersExhausted, got roll %q err %v", roll, err)
	}
	// Other prefixes are unaffected.
	if _, err := g.RollNumber(4, "CSE", used); err != nil {
		t.Fatalf("unexpected error for fresh prefix: %v", err)
	}
}

func TestMaxStudentCountFitsClockSuffixSpace(t *testing.T) {
	if MaxStudentCount >= clockSuffixSpace {
		t.Fatalf("MaxStudentCount %d must stay below the clock suffix space %d", MaxStudentCount, clockSuffixSpace)
	}
}

func itoa2(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestYearSplit(t *testing.T) {
	cases := map[int]map[int]int{
		560: {1: 140, 2: 140, 3: 140, 4: 140},
		10:  {1: 3, 2: 3, 3: 2, 4: 2},
		3:   {1: 1, 2: 1, 3: 1, 4: 0},
	}
	for count, want := range cases {
		got := YearSplit(count)
		for year, n := range want {
			if got[year] != n {
				t.Fatalf("YearSplit(%d)[%d] = %d, want %d", count, year, got[year], n)
			}
		}
	}
	if len(YearSplit(0)) != 0 {
		t.Fatalf("zero count should produce an empty split")
	}
}

func TestGenerateStudents(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(5, 6)), nil)
	students, err := g.Generate(41, "hash")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(students) != 41 {
		t.Fatalf("expected 41 students, got %d", len(students))
	}
	perYear := map[int]int{}
	rolls := map[string]bool{}
	for _, s := range students {
		perYear[s.Year]++
		if rolls[s.RollNumber] {
			t.Fatalf("duplicate roll number %s", s.RollNumber)
		}
		rolls[s.RollNumber] = true
		if s.Email != s.RollNumber+"@vnrvjiet.in" {
			t.Fatalf("unexpected email %s", s.Email)
		}
		if len(s.PhoneNumber) != 10 || s.PhoneNumber[0] != '9' || len(s.ParentMobileNumber) != 10 {
			t.Fatalf("unexpected phone numbers %s %s", s.PhoneNumber, s.ParentMobileNumber)
		}
		if !s.IsActive || s.RoomNumber != "" || s.PasswordHash != "hash" {
			t.Fatalf("generated student should be active and unassigned: %+v", s)
		}
		if len(strings.Fields(s.Name)) != 2 {
			t.Fatalf("unexpected name %q", s.Name)
		}
	}
	if perYear[1] != 11 || perYear[2] != 10 || perYear[3] != 10 || perYear[4] != 10 {
		t.Fatalf("unexpected year split %v", perYear)
	}
}
