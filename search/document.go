package search

import (
	"strings"
	"sync"
	"time"

	"github.com/pemistahl/lingua-go"
)

// Job is the relational job record as handed to the indexing queue. The
// relational row is authoritative; the index document is a derived view.
type Job struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	IsRemote    bool      `json:"isRemote"`
	IsActive    bool      `json:"isActive"`
	Experience  string    `json:"experience"`
	JobType     string    `json:"jobType"`
	Skills      []string  `json:"skills"`
	CreatedAt   time.Time `json:"createdAt"`
}

// JobDocument is the index-resident projection of a job posting. CreatedAt
// is epoch seconds so the watermark bound is a plain numeric range.
type JobDocument struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Country     string   `json:"country"`
	IsRemote    bool     `json:"isRemote"`
	IsActive    bool     `json:"isActive"`
	Experience  string   `json:"experience"`
	JobType     string   `json:"jobType"`
	Skills      []string `json:"skills"`
	Language    string   `json:"language"`
	CreatedAt   int64    `json:"createdAt"`
}

// Location renders the human-readable location for notification emails.
func (d JobDocument) Location() string {
	parts := make([]string, 0, 2)
	if d.City != "" {
		parts = append(parts, d.City)
	}
	if d.State != "" {
		parts = append(parts, d.State)
	}
	if len(parts) == 0 && d.IsRemote {
		return "Remote"
	}
	return strings.Join(parts, ", ")
}

// Lazy: lingua loads its language models on first use, keep that off the
// startup path.
var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.German,
			lingua.French,
			lingua.Spanish,
			lingua.Portuguese,
		).
		Build()
})

func detectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}

	return strings.ToLower(lang.IsoCode639_1().String())
}

// NewDocument projects a job record into its index document, tagging the
// description language as an extra facet.
func NewDocument(job Job) JobDocument {
	return JobDocument{
		ID:          job.ID,
		Title:       job.Title,
		Company:     job.Company,
		Description: job.Description,
		City:        job.City,
		State:       job.State,
		Country:     job.Country,
		IsRemote:    job.IsRemote,
		IsActive:    job.IsActive,
		Experience:  job.Experience,
		JobType:     job.JobType,
		Skills:      job.Skills,
		Language:    detectLanguage(job.Description),
		CreatedAt:   job.CreatedAt.Unix(),
	}
}
