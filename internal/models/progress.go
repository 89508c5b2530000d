package models

type ProgressSummary struct {
	TotalExperiences int      `json:"totalExperiences"`
	TotalSessions    int      `json:"totalSessions"`
	AvgMood          *float64 `json:"avgMood"`
	AvgEnergy        *float64 `json:"avgEnergy"`
	AvgGrounding     *float64 `json:"avgGrounding"`
	LastExperience   *string  `json:"lastExperience"`
}

type TrendPoint struct {
	Date         string   `json:"date"`
	AvgMood      *float64 `json:"avgMood"`
	AvgEnergy    *float64 `json:"avgEnergy"`
	AvgGrounding *float64 `json:"avgGrounding"`
	Count        int      `json:"count"`
}

type SegmentStats struct {
	SegmentID      string   `json:"segmentId"`
	SegmentName    string   `json:"segmentName"`
	SegmentColor   string   `json:"segmentColor"`
	AvgIntensity   *float64 `json:"avgIntensity"`
	SensationCount int      `json:"sensationCount"`
	SensationTypes string   `json:"sensationTypes"`
}

type RatingSnapshot struct {
	Mood      *int `json:"mood"`
	Energy    *int `json:"energy"`
	Grounding *int `json:"grounding"`
}

type SessionComparison struct {
	SessionID     string         `json:"sessionId"`
	ExerciseTitle *string        `json:"exerciseTitle,omitempty"`
	Before        RatingSnapshot `json:"before"`
	After         RatingSnapshot `json:"after"`
	Changes       RatingSnapshot `json:"changes"`
	Date          string         `json:"date"`
}

type ExerciseUsage struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CategoryID   *string  `json:"categoryId,omitempty"`
	TimesUsed    int      `json:"timesUsed"`
	AvgMoodAfter *float64 `json:"avgMoodAfter"`
	LastUsed     *string  `json:"lastUsed"`
}
