package usecase

import "time"

// SetIngestorClock はテストから時刻を固定するためのフックです。
func SetIngestorClock(i *Ingestor, now func() time.Time) { i.now = now }

// SetJobQueueIDGenerator はテストからジョブIDを固定するためのフックです。
func SetJobQueueIDGenerator(q *JobQueue, newID func() string) { q.newID = newID }
