package models

import "time"

// CommunityPost is a message shared on the community page
type CommunityPost struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	ModelID   *int64    `json:"modelId"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostView is a post joined with its author and optional model
type PostView struct {
	CommunityPost
	User  *User  `json:"user"`
	Model *Model `json:"model,omitempty"`
}

// PostPatch carries the fields of a partial post update
type PostPatch struct {
	Content  *string `json:"content,omitempty"`
	Likes    *int64  `json:"likes,omitempty"`
	Comments *int64  `json:"comments,omitempty"`
}

// Apply merges the patch into p
func (pp PostPatch) Apply(p *CommunityPost) {
	if pp.Content != nil {
		p.Content = *pp.Content
	}
	if pp.Likes != nil {
		p.Likes = *pp.Likes
	}
	if pp.Comments != nil {
		p.Comments = *pp.Comments
	}
}

// SessionStatus is the state of a remote validation session
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known session status
func (s SessionStatus) Valid() bool {
	return s == SessionStatusPending || s == SessionStatusActive || s == SessionStatusCompleted
}

// ValidationSession is a simulated remote validation of a model on a robot platform
type ValidationSession struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"userId"`
	ModelID   int64         `json:"modelId"`
	RobotType string        `json:"robotType"`
	Status    SessionStatus `json:"status"`
	Duration  int           `json:"duration"` // seconds
	CreatedAt time.Time     `json:"createdAt"`
}

// SessionPatch carries the fields of a partial session update
type SessionPatch struct {
	Status   *SessionStatus `json:"status,omitempty"`
	Duration *int           `json:"duration,omitempty"`
}

// Apply merges the patch into s
func (sp SessionPatch) Apply(s *ValidationSession) {
	if sp.Status != nil {
		s.Status = *sp.Status
	}
	if sp.Duration != nil {
		s.Duration = *sp.Duration
	}
}
