package redis

import "time"

// SetNow replaces the record clock for tests.
func (s *HistorySink) SetNow(now func() time.Time) { s.now = now }
