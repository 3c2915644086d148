package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
)

const DateLayout = "2006-01-02"

// SessionFilter selects sessions. Zero-valued fields do not filter.
type SessionFilter struct {
	From     *time.Time // inclusive, compared by calendar date
	To       *time.Time // inclusive, compared by calendar date
	GameName string
	Status   models.SessionStatus
	Location *time.Location // used to take the session date; defaults to time.Local
}

// Filter returns the sessions matching every set predicate, newest first.
func Filter(sessions []models.Session, f SessionFilter) []models.Session {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	gameName := strings.TrimSpace(f.GameName)

	var out []models.Session
	for _, s := range sessions {
		day := dayNumber(s.PlayedAt.In(loc))
		if f.From != nil && day < dayNumber(*f.From) {
			continue
		}
		if f.To != nil && day > dayNumber(*f.To) {
			continue
		}
		if gameName != "" && !strings.EqualFold(s.GameName, gameName) {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayedAt.After(out[j].PlayedAt)
	})
	return out
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields nil.
func ParseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, invalid(fmt.Sprintf("date %q must use the YYYY-MM-DD format", v))
	}
	return &t, nil
}

// ParseStatus accepts OPEN or CLOSED in any case. An empty string yields "".
func ParseStatus(v string) (models.SessionStatus, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	status := models.SessionStatus(strings.ToUpper(v))
	if !status.Valid() {
		return "", invalid(fmt.Sprintf("unknown status %q, expected %s or %s", v, models.StatusOpen, models.StatusClosed))
	}
	return status, nil
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
