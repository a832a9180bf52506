package enums

import "fmt"

// ScrapeStatus tracks the lifecycle of a scrape submission.
type ScrapeStatus string

const (
	ScrapeStatusRunning   ScrapeStatus = "running"
	ScrapeStatusSucceeded ScrapeStatus = "succeeded"
	ScrapeStatusFailed    ScrapeStatus = "failed"
)

var validScrapeStatuses = []ScrapeStatus{
	ScrapeStatusRunning,
	ScrapeStatusSucceeded,
	ScrapeStatusFailed,
}

// IsValid checks whether the status matches the canonical enum.
func (s ScrapeStatus) IsValid() bool {
	for _, candidate := range validScrapeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScrapeStatus converts raw strings into ScrapeStatus.
func ParseScrapeStatus(value string) (ScrapeStatus, error) {
	for _, candidate := range validScrapeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scrape status %q", value)
}
