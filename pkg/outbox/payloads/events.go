package payloads

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

// ContributionSubmittedEvent is emitted when a user submits a stack for review.
type ContributionSubmittedEvent struct {
	ContributionID uuid.UUID      `json:"contribution_id"`
	SubmittedBy    uuid.UUID      `json:"submitted_by"`
	Name           string         `json:"name"`
	Industry       enums.Industry `json:"industry"`
	Scale          enums.Scale    `json:"scale"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// ContributionReviewedEvent is emitted once a contribution reaches a terminal status.
type ContributionReviewedEvent struct {
	ContributionID uuid.UUID                `json:"contribution_id"`
	Status         enums.ContributionStatus `json:"status"`
	ReviewedBy     uuid.UUID                `json:"reviewed_by"`
	ReviewedAt     time.Time                `json:"reviewed_at"`
	StackID        *uuid.UUID               `json:"stack_id,omitempty"`
	Reconciled     bool                     `json:"reconciled,omitempty"`
}

// StackPublishedEvent is emitted when an approved contribution lands in the catalog.
type StackPublishedEvent struct {
	StackID        uuid.UUID      `json:"stack_id"`
	ContributionID uuid.UUID      `json:"contribution_id"`
	Name           string         `json:"name"`
	Industry       enums.Industry `json:"industry"`
	Scale          enums.Scale    `json:"scale"`
	ContributedBy  uuid.UUID      `json:"contributed_by"`
}

func (e *ContributionSubmittedEvent) Validate() error {
	if e.ContributionID == uuid.Nil || e.SubmittedBy == uuid.Nil {
		return errors.New("contribution_id and submitted_by are required")
	}
	return nil
}

// Validate rejects non-terminal statuses and approvals that name no stack.
func (e *ContributionReviewedEvent) Validate() error {
	switch {
	case e.ContributionID == uuid.Nil:
		return errors.New("contribution_id is required")
	case !e.Status.IsTerminal():
		return fmt.Errorf("status %q is not a review outcome", e.Status)
	case e.Status == enums.ContributionStatusApproved && (e.StackID == nil || *e.StackID == uuid.Nil):
		return errors.New("approved review must carry stack_id")
	}
	return nil
}

func (e *StackPublishedEvent) Validate() error {
	if e.StackID == uuid.Nil || e.ContributionID == uuid.Nil {
		return errors.New("stack_id and contribution_id are required")
	}
	return nil
}
