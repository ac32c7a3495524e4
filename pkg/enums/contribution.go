package enums

import (
	"fmt"
	"strings"
)

// ContributionStatus maps to the contribution_status enum in Postgres.
type ContributionStatus string

const (
	ContributionStatusPending  ContributionStatus = "pending"
	ContributionStatusApproved ContributionStatus = "approved"
	ContributionStatusRejected ContributionStatus = "rejected"
)

var validContributionStatuses = []ContributionStatus{
	ContributionStatusPending,
	ContributionStatusApproved,
	ContributionStatusRejected,
}

// String implements fmt.Stringer.
func (s ContributionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical contribution_status enum.
func (s ContributionStatus) IsValid() bool {
	for _, candidate := range validContributionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s ContributionStatus) IsTerminal() bool {
	return s == ContributionStatusApproved || s == ContributionStatusRejected
}

// ParseContributionStatus converts raw input into ContributionStatus.
func ParseContributionStatus(value string) (ContributionStatus, error) {
	for _, candidate := range validContributionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contribution status %q", value)
}

// ContributionStatusFilter is a list filter; the zero value and "all" match every status.
type ContributionStatusFilter string

const ContributionStatusFilterAll ContributionStatusFilter = "all"

// ParseContributionStatusFilter accepts a status or "all". Empty input defaults to pending.
func ParseContributionStatusFilter(value string) (ContributionStatusFilter, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ContributionStatusFilter(ContributionStatusPending), nil
	}
	if value == string(ContributionStatusFilterAll) {
		return ContributionStatusFilterAll, nil
	}
	status, err := ParseContributionStatus(value)
	if err != nil {
		return "", err
	}
	return ContributionStatusFilter(status), nil
}

// Status returns the concrete status to filter by, or false for "all".
func (f ContributionStatusFilter) Status() (ContributionStatus, bool) {
	if f == "" || f == ContributionStatusFilterAll {
		return "", false
	}
	return ContributionStatus(f), true
}

// ReviewAction is the moderator decision on a pending contribution.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

// IsValid reports whether the action is approve or reject.
func (a ReviewAction) IsValid() bool {
	return a == ReviewActionApprove || a == ReviewActionReject
}

// TargetStatus returns the terminal status the action transitions to.
func (a ReviewAction) TargetStatus() ContributionStatus {
	if a == ReviewActionApprove {
		return ContributionStatusApproved
	}
	return ContributionStatusRejected
}

// ParseReviewAction converts raw input into ReviewAction.
func ParseReviewAction(value string) (ReviewAction, error) {
	action := ReviewAction(strings.ToLower(strings.TrimSpace(value)))
	if !action.IsValid() {
		return "", fmt.Errorf("invalid review action %q", value)
	}
	return action, nil
}
