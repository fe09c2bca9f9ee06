package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL string        // Base URL of the service
	Matches int           // Number of synthetic matches to submit
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout
	Version string        // Analysis version created for every match
	Prefix  string        // Match id prefix
	Seed    uint64        // Seed of the first match; match i uses Seed+i

	SegmentsPerMatch int     // Classified segments per match
	SegmentSec       float64 // Length of each segment
	EventGapSec      float64 // Minimum spacing of ground-truth actions
	JitterSec        float64 // Max timestamp noise per detection
	MissRate         float64 // Chance an overlapping window misses an action
}

// DefaultConfig returns a small run against a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:9080",
		Matches:          20,
		Workers:          4,
		Timeout:          30 * time.Second,
		Prefix:           "synthetic",
		Seed:             1,
		SegmentsPerMatch: 6,
		SegmentSec:       90,
		EventGapSec:      8,
		JitterSec:        0.3,
		MissRate:         0.1,
	}
}

// Stats holds load test statistics.
type Stats struct {
	MatchesGenerated int
	Submitted        int
	Accepted         int
	Conflicts        int
	Failed           int
	Verified         int
	Mismatched       int
	Actions          int
	Detections       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
