package utils

import "time"

// ReportTimestampLayout renders as "January 02, 2006 at 03:04 PM".
const ReportTimestampLayout = "January 02, 2006 at 03:04 PM"

// GeneratedOn returns the default report subtitle for t.
func GeneratedOn(t time.Time) string {
	return "Generated on " + t.Format(ReportTimestampLayout)
}

