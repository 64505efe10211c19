package hub

import "sort"

// RankEntry is one row of the class leaderboard.
type RankEntry struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	TotalCredits int    `json:"total_credits"`
	Rank         int    `json:"rank"`
}

// ClassRank is the leaderboard plus its derived statistics.
type ClassRank struct {
	Entries       []RankEntry `json:"entries"`
	TotalStudents int         `json:"total_students"`
	AverageCredit float64     `json:"average_credit"`
}

// RankStudents orders every student by approved credit total descending.
// Students with equal totals are ordered by ascending email so the result
// is deterministic, and each occupies its own position: rank is 1 + the
// number of students sorted before it, never compressed for ties.
func RankStudents(students []Student, totals map[string]int) ClassRank {
	entries := make([]RankEntry, 0, len(students))
	for _, s := range students {
		name := s.FirstName
		if s.LastName != "" {
			name += " " + s.LastName
		}
		entries = append(entries, RankEntry{
			Email:        s.Email,
			Name:         name,
			TotalCredits: totals[s.Email],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalCredits != entries[j].TotalCredits {
			return entries[i].TotalCredits > entries[j].TotalCredits
		}
		return entries[i].Email < entries[j].Email
	})
	sum := 0
	for i := range entries {
		entries[i].Rank = i + 1
		sum += entries[i].TotalCredits
	}
	avg := 0.0
	if len(entries) > 0 {
		avg = float64(sum) / float64(len(entries))
	}
	return ClassRank{Entries: entries, TotalStudents: len(entries), AverageCredit: avg}
}

// RankOf finds a student's leaderboard position; 0 when absent.
func (cr ClassRank) RankOf(email string) int {
	for _, e := range cr.Entries {
		if e.Email == email {
			return e.Rank
		}
	}
	return 0
}

// TopPercent expresses a rank as a standing percentage: rank 1 of N is
// 100 (the best), rank N is 100/N. An empty class or a student with no
// rank yields 0.
func TopPercent(rank, totalStudents int) float64 {
	if rank < 1 || totalStudents < rank {
		return 0
	}
	return 100 * float64(totalStudents-rank+1) / float64(totalStudents)
}
