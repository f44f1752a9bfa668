// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package projects

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
)

// Field limits, in characters.
const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MaxShortFieldLength  = 200
)

// Input is the client-supplied part of a project. Nil fields are left
// unchanged on update.
type Input struct { //nolint:govet // fieldalignment: readability over optimization
	Title                 *string                 `json:"title"`
	Description           *string                 `json:"description"`
	CoverImageURL         *string                 `json:"coverImageUrl"`
	Region                *string                 `json:"region"`
	Location              *string                 `json:"location"`
	TimeOfDay             *string                 `json:"time"`
	IssuesAddressed       *models.IssueList       `json:"issuesAddressed"`
	VolunteerRequirements *models.RequirementList `json:"volunteerRequirements"`
	Type                  *models.ProjectType     `json:"projectType"`
	StartDate             *models.Date            `json:"startDate"`
	EndDate               *models.Date            `json:"endDate"`
	Frequency             *string                 `json:"frequency"`
	State                 *models.ProjectState    `json:"state"`
	RejectionReason       *string                 `json:"rejectionReason"`
	Version               *int64                  `json:"version"`
}

// hasContent reports whether any descriptive field is set.
func (in *Input) hasContent() bool {
	return in.Title != nil || in.Description != nil || in.CoverImageURL != nil ||
		in.Region != nil || in.Location != nil || in.TimeOfDay != nil ||
		in.IssuesAddressed != nil || in.VolunteerRequirements != nil ||
		in.Type != nil || in.StartDate != nil || in.EndDate != nil || in.Frequency != nil
}

// apply copies the descriptive fields of in onto p.
func (in *Input) apply(p *models.Project) {
	setString(&p.Title, in.Title)
	setString(&p.Description, in.Description)
	setString(&p.CoverImageURL, in.CoverImageURL)
	setString(&p.Region, in.Region)
	setString(&p.Location, in.Location)
	setString(&p.TimeOfDay, in.TimeOfDay)
	setString(&p.Frequency, in.Frequency)
	if in.IssuesAddressed != nil {
		p.IssuesAddressed = *in.IssuesAddressed
	}
	if in.VolunteerRequirements != nil {
		p.VolunteerRequirements = *in.VolunteerRequirements
	}
	if in.Type != nil {
		p.Type = *in.Type
	}
	if in.StartDate != nil {
		d := *in.StartDate
		p.StartDate = &d
	}
	if in.EndDate != nil {
		d := *in.EndDate
		p.EndDate = &d
	}
	// Recurring projects carry no dates, events no frequency.
	switch p.Type {
	case models.ProjectTypeRecurring:
		p.StartDate, p.EndDate = nil, nil
	case models.ProjectTypeEvent:
		p.Frequency = ""
	}
}

func setString(dst, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// validate checks every descriptive field of p.
func validate(p *models.Project) apperr.Fields {
	var fields apperr.Fields

	requireText(&fields, "title", p.Title, MaxTitleLength)
	requireText(&fields, "description", p.Description, MaxDescriptionLength)
	requireText(&fields, "region", p.Region, MaxShortFieldLength)
	requireText(&fields, "location", p.Location, MaxShortFieldLength)
	if utf8.RuneCountInString(p.TimeOfDay) > MaxShortFieldLength {
		fields.Add("time", fmt.Sprintf("is too long (maximum is %d characters)", MaxShortFieldLength))
	}

	if p.CoverImageURL != "" && !validImageURL(p.CoverImageURL) {
		fields.Add("coverImageUrl", "must be an http(s) URL")
	}

	if len(p.IssuesAddressed) == 0 {
		fields.Add("issuesAddressed", "must name at least one issue")
	}
	for _, issue := range p.IssuesAddressed {
		if !issue.Valid() {
			fields.Add("issuesAddressed", fmt.Sprintf("%q is not a known issue", issue))
		}
	}

	if len(p.VolunteerRequirements) == 0 {
		fields.Add("volunteerRequirements", "must list at least one requirement")
	}
	for i, req := range p.VolunteerRequirements {
		field := fmt.Sprintf("volunteerRequirements[%d]", i)
		if strings.TrimSpace(req.Type) == "" {
			fields.Add(field+".type", "can't be blank")
		}
		if !models.ValidCommitmentLevel(req.CommitmentLevel) {
			fields.Add(field+".commitmentLevel", "is not a known commitment level")
		}
		if req.Count < 1 {
			fields.Add(field+".count", "must be at least 1")
		}
	}

	switch p.Type {
	case models.ProjectTypeEvent:
		if p.StartDate == nil {
			fields.Add("startDate", "can't be blank for an event")
		}
		if p.EndDate == nil {
			fields.Add("endDate", "can't be blank for an event")
		}
		if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
			fields.Add("endDate", "must not be before the start date")
		}
	case models.ProjectTypeRecurring:
		if p.Frequency == "" {
			fields.Add("frequency", "can't be blank for a recurring project")
		}
	default:
		fields.Add("projectType", "must be EVENT or RECURRING")
	}

	return fields
}

func requireText(fields *apperr.Fields, field, value string, limit int) {
	switch {
	case value == "":
		fields.Add(field, "can't be blank")
	case utf8.RuneCountInString(value) > limit:
		fields.Add(field, fmt.Sprintf("is too long (maximum is %d characters)", limit))
	}
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
