package normalize

import (
	"strings"
	"time"
)

// CanonicalDateFormat is the single output format for dates of service.
const CanonicalDateFormat = "2006-01-02"

// Input formats commonly seen on bills, EOBs, and receipts, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"01/02/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// Date re-emits s in CanonicalDateFormat, or absent if no format matches.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalDateFormat)
		}
	}
	return ""
}

var timeFormats = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
	"3 PM",
	"3PM",
}

// Clock re-emits s as 24-hour "15:04", or absent if unparseable.
func Clock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}
