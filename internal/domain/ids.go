package domain

// MemberID is an internal identifier for a member record.
type MemberID string

// VoucherID is an internal identifier for a voucher record.
type VoucherID string

// SessionID identifies a single check-in/check-out interval.
type SessionID string

type BookingID string

type PaymentID string

type PostID string
