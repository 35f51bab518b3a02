// Package enums holds the canonical string enums shared by the data model,
// request validation, and the search filter builder, so accepted values and
// filterable values cannot drift apart.
package enums

type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeTemporary  JobType = "temporary"
)

func ValidJobType(s string) bool {
	switch JobType(s) {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeTemporary:
		return true
	}
	return false
}

type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

func ValidExperienceLevel(s string) bool {
	switch ExperienceLevel(s) {
	case ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceLead, ExperienceExecutive:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyInvalid Frequency = ""
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func ValidFrequency(s string) bool {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type SortBy string

const (
	// SortByRelevance omits explicit sort criteria so the engine's native
	// text-match ranking governs order.
	SortByRelevance SortBy = "relevance"
	SortByDate      SortBy = "date"
	SortByTitle     SortBy = "title"
)
