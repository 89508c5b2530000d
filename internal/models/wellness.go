package models

import "time"

type BodySegment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	OrderIndex  int    `json:"orderIndex"`
}

type ExerciseCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Exercise struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Instructions    *string    `json:"instructions,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	CategoryID      *string    `json:"categoryId,omitempty"`
	CategoryName    *string    `json:"categoryName,omitempty"`
	TargetSegments  []string   `json:"targetSegments"`
	Difficulty      string     `json:"difficulty"`
	SafetyNotes     *string    `json:"safetyNotes,omitempty"`
	CreatedBy       string     `json:"createdBy"`
	IsPublic        bool       `json:"isPublic"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type Experience struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	ExerciseID      *string      `json:"exerciseId,omitempty"`
	ExerciseTitle   *string      `json:"exerciseTitle,omitempty"`
	ExperienceType  string       `json:"experienceType"`
	SessionID       string       `json:"sessionId"`
	Notes           *string      `json:"notes,omitempty"`
	MoodRating      *int         `json:"moodRating,omitempty"`
	EnergyRating    *int         `json:"energyRating,omitempty"`
	GroundingRating *int         `json:"groundingRating,omitempty"`
	Sensations      []*Sensation `json:"sensations"`
	CreatedAt       time.Time    `json:"createdAt"`
}

type Sensation struct {
	ID            string  `json:"id"`
	ExperienceID  string  `json:"experienceId"`
	SegmentID     string  `json:"segmentId"`
	SegmentName   string  `json:"segmentName"`
	SegmentColor  string  `json:"segmentColor"`
	SensationType *string `json:"sensationType,omitempty"`
	Intensity     *int    `json:"intensity,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type SafetyCheckin struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ExperienceID *string   `json:"experienceId,omitempty"`
	FeelingSafe  bool      `json:"feelingSafe"`
	NeedsSupport bool      `json:"needsSupport"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StudentLink is a user row joined with the instructor relationship columns.
type StudentLink struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            *string    `json:"name,omitempty"`
	ConsentTracking bool       `json:"consentTracking"`
	ConsentGiven    bool       `json:"consentGiven"`
	ConsentDate     *time.Time `json:"consentDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type InstructorLink struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         *string    `json:"name,omitempty"`
	ConsentGiven bool       `json:"consentGiven"`
	ConsentDate  *time.Time `json:"consentDate,omitempty"`
}
