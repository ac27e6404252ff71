package services

import "time"

// SheetTimestampLayout is the layout of the timestamp column in the memory sheet.
const SheetTimestampLayout = "2006-01-02 15:04:05"

// FormatSheetTimestamp renders t in the sheet's wall-clock layout.
func FormatSheetTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(SheetTimestampLayout)
}

// ParseSheetTimestamp is the inverse of FormatSheetTimestamp.
func ParseSheetTimestamp(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(SheetTimestampLayout, s, loc)
}
