package backend

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Dashboard limits.
const (
	TopTopicsLimit     = 5
	RecentQueriesLimit = 5
)

// TopicCount is how often one query string was asked across all users.
type TopicCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers    int                `json:"totalUsers"`
	TotalQueries  int                `json:"totalQueries"`
	QueriesToday  int                `json:"queriesToday"`
	TopTopics     []TopicCount       `json:"topTopics"`
	RecentQueries []AdminHistoryItem `json:"recentQueries"`
}

// ComputeStats summarizes users and the global history as of now. "Today"
// starts at midnight in now's location. Topics with equal counts keep the
// order in which they first appear in history.
func ComputeStats(users []UserWithStats, hist []AdminHistoryItem, now time.Time) DashboardStats {
	st := DashboardStats{
		TotalUsers:    len(users),
		TotalQueries:  len(hist),
		TopTopics:     []TopicCount{},
		RecentQueries: []AdminHistoryItem{},
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UnixMilli()
	index := make(map[string]int)
	for _, h := range hist {
		if h.Timestamp >= midnight {
			st.QueriesToday++
		}
		if i, ok := index[h.Query]; ok {
			st.TopTopics[i].Count++
			continue
		}
		index[h.Query] = len(st.TopTopics)
		st.TopTopics = append(st.TopTopics, TopicCount{Query: h.Query, Count: 1})
	}
	sort.SliceStable(st.TopTopics, func(i, j int) bool { return st.TopTopics[i].Count > st.TopTopics[j].Count })
	if len(st.TopTopics) > TopTopicsLimit {
		st.TopTopics = st.TopTopics[:TopTopicsLimit]
	}

	recent := append([]AdminHistoryItem(nil), hist...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Timestamp > recent[j].Timestamp })
	if len(recent) > RecentQueriesLimit {
		recent = recent[:RecentQueriesLimit]
	}
	st.RecentQueries = append(st.RecentQueries, recent...)
	return st
}

// FilterUsers keeps users whose username or email contains term (case
// insensitive) and whose role matches. An empty role or "All" matches any.
func FilterUsers(users []UserWithStats, term string, role Role) []UserWithStats {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		if role != "" && role != "All" && u.Role != role {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Username), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		out = append(out, u)
	}
	return out
}

var usersCSVHeader = []string{"id", "username", "email", "role", "queryCount", "createdAt"}

// WriteUsersCSV writes users with a header row. A missing creation time is
// written as N/A.
func WriteUsersCSV(w io.Writer, users []UserWithStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(usersCSVHeader); err != nil {
		return err
	}
	for _, u := range users {
		created := "N/A"
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.UTC().Format(time.RFC3339)
		}
		rec := []string{string(u.ID), u.Username, u.Email, string(u.Role), strconv.Itoa(u.QueryCount), created}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
