package activity

import "time"

// progressScanCap bounds the lesson-progress scan feeding the report; the
// aggregation is recomputed from scratch per request and this keeps a very
// large campus from turning it into a full-table sweep.
const progressScanCap = 20000

type (
	// ProgressRow is one lesson-progress record joined with its course and
	// program, the raw material of the report aggregations.
	ProgressRow struct {
		UserID         string
		CourseID       string
		CourseTitle    string
		ProgramID      string // empty for stand-alone courses
		ProgramTitle   string
		WatchedSeconds int
		UpdatedAt      time.Time
	}

	WindowCounts struct {
		Last7Days   int `json:"last_7_days"`
		Last30Days  int `json:"last_30_days"`
		Last365Days int `json:"last_365_days,omitempty"`
	}

	MinutesEntry struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Minutes int    `json:"minutes"`
	}

	// Report answers "how active is the campus" for the admin dashboard.
	Report struct {
		GeneratedAt      time.Time      `json:"generated_at"`
		UsersByRole      map[string]int `json:"users_by_role"`
		Signups          WindowCounts   `json:"signups"`
		ActiveUsers      WindowCounts   `json:"active_users"`
		MinutesByCourse  []MinutesEntry `json:"minutes_by_course"`
		MinutesByProgram []MinutesEntry `json:"minutes_by_program"`
		RowsScanned      int            `json:"rows_scanned"`
		Capped           bool           `json:"capped"`
	}
)
