package domain

import "time"

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// MemberStatus is the approval lifecycle of a member.
type MemberStatus string

const (
	MemberStatusPending   MemberStatus = "PENDING"
	MemberStatusApproved  MemberStatus = "APPROVED"
	MemberStatusRejected  MemberStatus = "REJECTED"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusPending, MemberStatusApproved, MemberStatusRejected, MemberStatusSuspended:
		return true
	}
	return false
}

// CanTransitionTo reports whether an admin may move a member from s to next.
//
//	PENDING   -> APPROVED | REJECTED
//	APPROVED  -> SUSPENDED
//	SUSPENDED -> APPROVED
func (s MemberStatus) CanTransitionTo(next MemberStatus) bool {
	switch s {
	case MemberStatusPending:
		return next == MemberStatusApproved || next == MemberStatusRejected
	case MemberStatusApproved:
		return next == MemberStatusSuspended
	case MemberStatusSuspended:
		return next == MemberStatusApproved
	default:
		return false
	}
}

// Plan is the subscription plan a member pays for.
type Plan string

const (
	PlanMonthly   Plan = "MONTHLY"
	PlanQuarterly Plan = "QUARTERLY"
	PlanAnnual    Plan = "ANNUAL"
)

// Months returns the length of one paid period, or 0 for an unknown plan.
func (p Plan) Months() int {
	switch p {
	case PlanMonthly:
		return 1
	case PlanQuarterly:
		return 3
	case PlanAnnual:
		return 12
	}
	return 0
}

// Member is the domain representation of a member profile.
type Member struct {
	ID MemberID

	DisplayName string
	Email       string
	Phone       string
	Bio         *string

	Role   Role
	Status MemberStatus
	Plan   Plan

	// PaidThrough is the last café day covered by a recorded payment; nil means never paid.
	PaidThrough *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

// HasCurrentSubscription reports whether the member has paid through the given café day.
func (m Member) HasCurrentSubscription(today time.Time) bool {
	return m.PaidThrough != nil && !m.PaidThrough.Before(today)
}
