// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// IssueAddressed tags the cause a project works on.
type IssueAddressed string

const (
	IssueAnimalWelfare    IssueAddressed = "ANIMAL_WELFARE"
	IssueArtsAndHeritage  IssueAddressed = "ARTS_AND_HERITAGE"
	IssueChildrenAndYouth IssueAddressed = "CHILDREN_AND_YOUTH"
	IssueCommunity        IssueAddressed = "COMMUNITY"
	IssueDisability       IssueAddressed = "DISABILITY"
	IssueEducation        IssueAddressed = "EDUCATION"
	IssueElderly          IssueAddressed = "ELDERLY"
	IssueEnvironment      IssueAddressed = "ENVIRONMENT"
	IssueFamilies         IssueAddressed = "FAMILIES"
	IssueHealth           IssueAddressed = "HEALTH"
	IssueHumanitarian     IssueAddressed = "HUMANITARIAN"
	IssueSocialService    IssueAddressed = "SOCIAL_SERVICE"
	IssueSports           IssueAddressed = "SPORTS"
	IssueWomenAndGirls    IssueAddressed = "WOMEN_AND_GIRLS"
)

const defaultCoverImage = "/static/images/projects/default.jpg"

// coverImages maps every issue to its bundled default cover image.
var coverImages = map[IssueAddressed]string{
	IssueAnimalWelfare:    "/static/images/projects/animal-welfare.jpg",
	IssueArtsAndHeritage:  "/static/images/projects/arts-and-heritage.jpg",
	IssueChildrenAndYouth: "/static/images/projects/children-and-youth.jpg",
	IssueCommunity:        "/static/images/projects/community.jpg",
	IssueDisability:       "/static/images/projects/disability.jpg",
	IssueEducation:        "/static/images/projects/education.jpg",
	IssueElderly:          "/static/images/projects/elderly.jpg",
	IssueEnvironment:      "/static/images/projects/environment.jpg",
	IssueFamilies:         "/static/images/projects/families.jpg",
	IssueHealth:           "/static/images/projects/health.jpg",
	IssueHumanitarian:     "/static/images/projects/humanitarian.jpg",
	IssueSocialService:    "/static/images/projects/social-service.jpg",
	IssueSports:           "/static/images/projects/sports.jpg",
	IssueWomenAndGirls:    "/static/images/projects/women-and-girls.jpg",
}

// Valid reports whether i is a known issue.
func (i IssueAddressed) Valid() bool {
	_, ok := coverImages[i]
	return ok
}

// DefaultCoverImage returns the bundled cover image for an issue.
func DefaultCoverImage(issue IssueAddressed) string {
	if img, ok := coverImages[issue]; ok {
		return img
	}
	return defaultCoverImage
}

// Commitment levels a volunteer requirement may ask for.
const (
	CommitmentOneOff      = "ONE_OFF"
	CommitmentWeekly      = "WEEKLY"
	CommitmentFortnightly = "FORTNIGHTLY"
	CommitmentMonthly     = "MONTHLY"
	CommitmentFlexible    = "FLEXIBLE"
)

var commitmentLevels = map[string]struct{}{
	CommitmentOneOff:      {},
	CommitmentWeekly:      {},
	CommitmentFortnightly: {},
	CommitmentMonthly:     {},
	CommitmentFlexible:    {},
}

// ValidCommitmentLevel reports whether level is a known commitment level.
func ValidCommitmentLevel(level string) bool {
	_, ok := commitmentLevels[level]
	return ok
}
