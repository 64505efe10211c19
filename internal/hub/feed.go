package hub

import (
	"sort"
	"time"
)

// FeedOrder selects the date field a merged feed is sorted by.
type FeedOrder int

const (
	// ByOccurrence sorts on the issue/occurrence date, newest first.
	// Used for the student-facing activity list.
	ByOccurrence FeedOrder = iota
	// BySubmitted sorts on the submission timestamp, newest first.
	// Used for the faculty approval queue.
	BySubmitted
)

// FeedItem is one submission summary tagged with its kind.
type FeedItem struct {
	ID          string         `json:"id"`
	Kind        SubmissionKind `json:"kind"`
	OwnerEmail  string         `json:"owner_email"`
	Title       string         `json:"title"`
	Detail      string         `json:"detail,omitempty"`
	EvidenceURL string         `json:"evidence_url,omitempty"`
	Status      Status         `json:"status"`
	Credit      int            `json:"credit"`
	Remark      string         `json:"remark,omitempty"`
	Date        *time.Time     `json:"date,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// MergeFeed combines submission slices into one feed sorted newest first
// by the chosen order. Items without an occurrence date sort last. The
// merge is a pure function of its inputs; it never touches storage.
func MergeFeed(order FeedOrder, lists ...[]Submission) []FeedItem {
	var items []FeedItem
	for _, list := range lists {
		for _, s := range list {
			items = append(items, FeedItem{
				ID:          s.ID,
				Kind:        s.Kind,
				OwnerEmail:  s.OwnerEmail,
				Title:       s.Title,
				Detail:      detailFor(s),
				EvidenceURL: s.EvidenceURL,
				Status:      s.Status,
				Credit:      s.Credit,
				Remark:      s.Remark,
				Date:        s.OccurredOn,
				SubmittedAt: s.SubmittedAt,
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == BySubmitted {
			return items[i].SubmittedAt.After(items[j].SubmittedAt)
		}
		return feedDate(items[i]).After(feedDate(items[j]))
	})
	return items
}

// feedDate treats a missing occurrence date as the zero time so dateless
// items sink to the end of a descending sort.
func feedDate(it FeedItem) time.Time {
	if it.Date == nil {
		return time.Time{}
	}
	return *it.Date
}

func detailFor(s Submission) string {
	switch s.Kind {
	case KindCertificate:
		return s.Organization
	case KindProject:
		return s.Subject
	case KindActivity:
		return s.ActivityType
	}
	return ""
}

// Paginate slices a feed into one page; page numbers start at 1.
func Paginate(items []FeedItem, page, perPage int) []FeedItem {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
