package service

import "time"

// ShouldSend reports whether now falls inside the send window of a session:
// on or after sessionDate minus hoursBefore, and strictly before sessionDate.
// Comparisons are evaluated in loc, the game's timezone. Once the session
// time has passed the window is closed for good, whatever the offset.
//
// hoursBefore may be zero or negative ("send at or after session start");
// such windows are empty and never fire.
func ShouldSend(sessionDate time.Time, hoursBefore int, now time.Time, loc *time.Location) bool {
	session := sessionDate.In(loc)
	current := now.In(loc)

	windowStart := session.Add(-time.Duration(hoursBefore) * time.Hour)

	return !current.Before(windowStart) && current.Before(session)
}
