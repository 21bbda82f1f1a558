package models

import "time"

// User is the owner of models, jobs, posts and validation sessions
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Affiliation *string   `json:"affiliation"`
	Avatar      *string   `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Model is an entry in a user's model library
type Model struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	ModelType    string    `json:"modelType"` // humanoid, quadruped, manipulator, ...
	Accuracy     *float64  `json:"accuracy"`
	TrainingTime *int      `json:"trainingTime"` // hours
	Size         *int64    `json:"size"`         // bytes
	FilePath     *string   `json:"filePath"`
	IsPublic     bool      `json:"isPublic"`
	Downloads    int64     `json:"downloads"`
	Likes        int64     `json:"likes"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ModelPatch carries the fields of a partial model update
type ModelPatch struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	ModelType    *string  `json:"modelType,omitempty"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	TrainingTime *int     `json:"trainingTime,omitempty"`
	IsPublic     *bool    `json:"isPublic,omitempty"`
	Downloads    *int64   `json:"downloads,omitempty"`
	Likes        *int64   `json:"likes,omitempty"`
}

// Apply merges the patch into m
func (p ModelPatch) Apply(m *Model) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		m.Description = &d
	}
	if p.ModelType != nil {
		m.ModelType = *p.ModelType
	}
	if p.Accuracy != nil {
		a := *p.Accuracy
		m.Accuracy = &a
	}
	if p.TrainingTime != nil {
		t := *p.TrainingTime
		m.TrainingTime = &t
	}
	if p.IsPublic != nil {
		m.IsPublic = *p.IsPublic
	}
	if p.Downloads != nil {
		m.Downloads = *p.Downloads
	}
	if p.Likes != nil {
		m.Likes = *p.Likes
	}
}

// LowersCounters reports whether applying the patch would decrease a counter of m
func (p ModelPatch) LowersCounters(m Model) bool {
	if p.Downloads != nil && *p.Downloads < m.Downloads {
		return true
	}
	return p.Likes != nil && *p.Likes < m.Likes
}

// Counter names an incrementable popularity counter
type Counter string

const (
	CounterDownloads Counter = "downloads"
	CounterLikes     Counter = "likes"
)

// MarketplaceModel is a shareable catalog entry, distinct from a user's own Model
type MarketplaceModel struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	Rating       float64           `json:"rating"`
	Downloads    int64             `json:"downloads"`
	Price        float64           `json:"price"`
	Likes        int64             `json:"likes"`
	License      string            `json:"license"`
	Author       MarketplaceAuthor `json:"author"`
}

// MarketplaceAuthor is the publisher shown on a catalog entry
type MarketplaceAuthor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Affiliation string `json:"affiliation"`
}
