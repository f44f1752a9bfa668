// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectState is the approval state of a project.
type ProjectState string

const (
	StatePendingApproval  ProjectState = "PENDING_APPROVAL"
	StateApprovedActive   ProjectState = "APPROVED_ACTIVE"
	StateApprovedInactive ProjectState = "APPROVED_INACTIVE"
	StateRejected         ProjectState = "REJECTED"
)

// ProjectStates lists every state in display order.
var ProjectStates = []ProjectState{
	StatePendingApproval,
	StateApprovedActive,
	StateApprovedInactive,
	StateRejected,
}

// Valid reports whether s is one of the four project states.
func (s ProjectState) Valid() bool {
	switch s {
	case StatePendingApproval, StateApprovedActive, StateApprovedInactive, StateRejected:
		return true
	}
	return false
}

// ProjectType distinguishes dated events from recurring projects.
type ProjectType string

const (
	ProjectTypeEvent     ProjectType = "EVENT"
	ProjectTypeRecurring ProjectType = "RECURRING"
)

// Valid reports whether t is a known project type.
func (t ProjectType) Valid() bool {
	return t == ProjectTypeEvent || t == ProjectTypeRecurring
}

// Project is a volunteer opportunity owned by a ProjectOwner.
type Project struct { //nolint:govet // fieldalignment not critical for models
	ID                    int64           `db:"id" json:"id"`
	OwnerID               int64           `db:"owner_id" json:"ownerId"`
	Title                 string          `db:"title" json:"title"`
	Description           string          `db:"description" json:"description"`
	CoverImageURL         string          `db:"cover_image_url" json:"coverImageUrl"`
	Region                string          `db:"region" json:"region"`
	Location              string          `db:"location" json:"location"`
	TimeOfDay             string          `db:"time_of_day" json:"time"`
	IssuesAddressed       IssueList       `db:"issues_addressed" json:"issuesAddressed"`
	VolunteerRequirements RequirementList `db:"volunteer_requirements" json:"volunteerRequirements"`
	Type                  ProjectType     `db:"project_type" json:"projectType"`
	StartDate             *Date           `db:"start_date" json:"startDate,omitempty"`
	EndDate               *Date           `db:"end_date" json:"endDate,omitempty"`
	Frequency             string          `db:"frequency" json:"frequency,omitempty"`
	State                 ProjectState    `db:"state" json:"state"`
	RejectionReason       string          `db:"rejection_reason" json:"rejectionReason,omitempty"`
	Version               int64           `db:"version" json:"version"`
	CreatedAt             time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updatedAt"`
}

// CoverImage returns the project's cover image, falling back to the default
// image of its first issue.
func (p *Project) CoverImage() string {
	if p.CoverImageURL != "" {
		return p.CoverImageURL
	}
	if len(p.IssuesAddressed) > 0 {
		return DefaultCoverImage(p.IssuesAddressed[0])
	}
	return DefaultCoverImage("")
}

// MarshalJSON resolves the cover image before encoding.
func (p Project) MarshalJSON() ([]byte, error) {
	type plain Project
	out := plain(p)
	out.CoverImageURL = p.CoverImage()
	return json.Marshal(out)
}

// VolunteerRequirement describes one kind of volunteer a project needs.
type VolunteerRequirement struct {
	Type            string `json:"type"`
	CommitmentLevel string `json:"commitmentLevel"`
	Count           int    `json:"count"`
}

// RequirementList is stored as a JSON array.
type RequirementList []VolunteerRequirement

func (l RequirementList) Value() (driver.Value, error) {
	return marshalJSONColumn(l)
}

func (l *RequirementList) Scan(src any) error {
	return unmarshalJSONColumn(src, l)
}

// IssueList is stored as a JSON array.
type IssueList []IssueAddressed

func (l IssueList) Value() (driver.Value, error) {
	return marshalJSONColumn(l)
}

func (l *IssueList) Scan(src any) error {
	return unmarshalJSONColumn(src, l)
}

func marshalJSONColumn(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func unmarshalJSONColumn(src, dest any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// DateLayout is the wire and storage layout of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. It is stored as
// YYYY-MM-DD text so SQL comparisons order correctly.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is an earlier calendar date than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case time.Time:
		*d = NewDate(v)
		return nil
	}
	return fmt.Errorf("unsupported date column type %T", src)
}

func (d *Date) parse(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}
