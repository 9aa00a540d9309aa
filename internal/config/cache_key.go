package config

import "strconv"

// cacheKeys centralizes every Redis key the application reads or writes so
// that producers and consumers cannot drift apart.
type cacheKeys struct {
	// QuestionAttempts/QuestionCorrect are hashes keyed by question id,
	// maintained by the stats worker from graded submissions.
	QuestionAttempts string
	QuestionCorrect  string
}

// CacheKey is the shared Redis key set.
var CacheKey = cacheKeys{
	QuestionAttempts: "quizhub:stats:question_attempts",
	QuestionCorrect:  "quizhub:stats:question_correct",
}

// BundleDetail is the cached question list payload for a quiz bundle.
func (cacheKeys) BundleDetail(bundleID int) string {
	return "quizhub:bundle:" + strconv.Itoa(bundleID) + ":questions"
}

// workerKeys centralizes queue names consumed by background workers.
type workerKeys struct {
	// SubmissionStatsQueue receives one payload per graded submission.
	SubmissionStatsQueue string
}

// WorkerKey is the shared worker queue name set.
var WorkerKey = workerKeys{
	SubmissionStatsQueue: "quizhub:queue:submission_stats",
}
