package provisioning

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"hostelcore/pkg/domain"
)

// DefaultStudentCount is the population size used when none is requested.
const DefaultStudentCount = 560

// MaxStudentCount caps one generated population. A year/branch prefix then
// never holds more roll numbers than the clock suffix space can supply.
const MaxStudentCount = 10000

// rollRetryLimit bounds random suffix attempts before falling back to the clock.
const rollRetryLimit = 100

// clockSuffixSpace is the number of distinct 5-digit clock suffixes.
const clockSuffixSpace = 100000

// ErrRollNumbersExhausted reports that every roll number for a year and
// branch is already taken.
var ErrRollNumbersExhausted = errors.New("roll numbers exhausted")

// Branches lists the academic branches a generated student may belong to.
var Branches = []string{
	"CSE", "CSE-AIML", "CSE-DS", "CSE-CYS", "AIDS",
	"MECH", "EEE", "ECE", "CIVIL", "AE", "IT", "CSBS",
}

var branchCodes = map[string]string{
	"CSE":      "05",
	"CSE-AIML": "66",
	"CSE-DS":   "67",
	"CSE-CYS":  "68",
	"AIDS":     "69",
	"MECH":     "03",
	"EEE":      "02",
	"ECE":      "04",
	"CIVIL":    "01",
	"AE":       "21",
	"IT":       "54",
	"CSBS":     "70",
}

// BranchCode maps a branch to its two-digit roll number code, "00" if unknown.
func BranchCode(branch string) string {
	if code, ok := branchCodes[branch]; ok {
		return code
	}
	return "00"
}

// FirstNames and LastNames are the pools synthetic names are drawn from.
var (
	FirstNames = []string{
		"Aarav", "Akshay", "Arjun", "Chaitanya", "Dhruv", "Gaurav", "Ishaan",
		"Krishna", "Manish", "Nikhil", "Pranav", "Rahul", "Rohan", "Sanjay",
		"Siddharth", "Varun", "Vikram", "Yash", "Aditya", "Arnav", "Farhan",
		"Harish", "Karan", "Omkar", "Rajat", "Tarun", "Vivek", "Abhishek",
		"Arun", "Deepak", "Karthik", "Mohit", "Naveen", "Prakash", "Ravi",
		"Suresh", "Vijay", "Ajay", "Amit", "Anand", "Dinesh", "Girish",
		"Hari", "Jayesh", "Kunal", "Manoj", "Neeraj", "Pankaj", "Ramesh",
		"Sachin", "Sunil", "Vinay", "Vishal", "Ashish", "Saurabh", "Shyam",
	}
	LastNames = []string{
		"Sharma", "Patel", "Singh", "Kumar", "Reddy", "Rao", "Verma", "Joshi",
		"Gupta", "Malhotra", "Nair", "Pillai", "Iyer", "Mukherjee", "Chatterjee",
		"Das", "Banerjee", "Shah", "Mehta", "Agarwal", "Kapoor", "Khanna", "Bose",
		"Sengupta", "Desai", "Menon", "Naidu", "Choudhury", "Bhat", "Hegde",
		"Kaur", "Chauhan", "Lal", "Chowdhury", "Patil", "Chandra", "Saxena", "Trivedi",
		"Shetty", "Nayak", "Gowda", "Rajan", "Krishnan", "Venkatesh", "Subramaniam",
	}
)

// EmailDomain is appended to roll numbers to form college addresses.
const EmailDomain = "vnrvjiet.in"

const hexChars = "0123456789abcdef"

// Generator produces synthetic students. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
	// IntakeYear is the two-digit admission year of first-year students.
	IntakeYear int
}

// NewGenerator returns a Generator drawing from rng. A nil rng uses a
// time-seeded PCG source; a nil now uses time.Now.
func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now, IntakeYear: 25}
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.IntN(len(pool))]
}

// RollNumber builds a roll number unique within used and records it there.
// The shape is <intake-year><"071a"><branch code><2 digits><hex char>. After
// rollRetryLimit collisions it switches to a 5-digit clock-derived suffix,
// bumped until free. Once that space is full it returns
// ErrRollNumbersExhausted.
func (g *Generator) RollNumber(year int, branch string, used map[string]struct{}) (string, error) {
	prefix := fmt.Sprintf("%d071a%s", g.IntakeYear-year, BranchCode(branch))
	for range rollRetryLimit {
		candidate := fmt.Sprintf("%s%d%c", prefix, 10+g.rng.IntN(90), hexChars[g.rng.IntN(len(hexChars))])
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate, nil
		}
	}
	suffix := g.now().UnixMilli() % clockSuffixSpace
	for range clockSuffixSpace {
		candidate := fmt.Sprintf("%s%05d", prefix, suffix)
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate, nil
		}
		suffix = (suffix + 1) % clockSuffixSpace
	}
	return "", fmt.Errorf("%w for prefix %s", ErrRollNumbersExhausted, prefix)
}

// PhoneNumber returns a 10-digit mobile number starting with 9.
func (g *Generator) PhoneNumber() string {
	return fmt.Sprintf("9%09d", g.rng.IntN(1_000_000_000))
}

// Name returns a random "First Last" name.
func (g *Generator) Name() string {
	return g.pick(FirstNames) + " " + g.pick(LastNames)
}

// YearSplit divides count evenly across years 1..4, giving any remainder to
// the lowest years.
func YearSplit(count int) map[int]int {
	split := make(map[int]int, len(domain.Years))
	if count <= 0 {
		return split
	}
	base, rest := count/len(domain.Years), count%len(domain.Years)
	for i, year := range domain.Years {
		split[year] = base
		if i < rest {
			split[year]++
		}
	}
	return split
}

// Generate creates count active, unassigned students ordered by year. Every
// student carries passwordHash. Roll numbers are unique within the batch.
func (g *Generator) Generate(count int, passwordHash string) ([]domain.Student, error) {
	split := YearSplit(count)
	used := make(map[string]struct{}, count)
	students := make([]domain.Student, 0, max(count, 0))
	for _, year := range domain.Years {
		for range split[year] {
			branch := g.pick(Branches)
			roll, err := g.RollNumber(year, branch, used)
			if err != nil {
				return nil, err
			}
			students = append(students, domain.Student{
				Name:               g.Name(),
				RollNumber:         roll,
				Branch:             branch,
				Year:               year,
				Email:              roll + "@" + EmailDomain,
				PhoneNumber:        g.PhoneNumber(),
				ParentMobileNumber: g.PhoneNumber(),
				PasswordHash:       passwordHash,
				IsActive:           true,
			})
		}
	}
	return students, nil
}
