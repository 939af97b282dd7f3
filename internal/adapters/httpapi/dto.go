package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/eightonethree/cafe-api/internal/app/bookings"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/reset"
	"github.com/eightonethree/cafe-api/internal/domain"
)

type MemberProfile struct {
	MemberId    string                                `json:"memberId"`
	DisplayName string                                `json:"displayName"`
	Email       openapi_types.Email                   `json:"email"`
	Phone       string                                `json:"phone"`
	Bio         nullable.Nullable[string]             `json:"bio"`
	Role        string                                `json:"role"`
	Status      string                                `json:"status"`
	Plan        string                                `json:"plan"`
	PaidThrough nullable.Nullable[openapi_types.Date] `json:"paidThrough"`
	CreatedAt   time.Time                             `json:"createdAt"`
	UpdatedAt   time.Time                             `json:"updatedAt"`
}

type MemberResponse struct {
	Member MemberProfile `json:"member"`
}

type ListMembersResponse struct {
	Members []MemberProfile `json:"members"`
}

// SignUpRequest takes email as a plain string so a malformed address is reported with the
// other field errors instead of failing the decode.
type SignUpRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	Plan        string `json:"plan"`
}

// UpdateMeRequest distinguishes omitted fields from explicit nulls.
type UpdateMeRequest struct {
	DisplayName     nullable.Nullable[string] `json:"displayName,omitempty"`
	Phone           nullable.Nullable[string] `json:"phone,omitempty"`
	Bio             nullable.Nullable[string] `json:"bio,omitempty"`
	Password        nullable.Nullable[string] `json:"password,omitempty"`
	CurrentPassword *string                   `json:"currentPassword,omitempty"`
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string        `json:"accessToken"`
	TokenType   string        `json:"tokenType"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Member      MemberProfile `json:"member"`
}

type Voucher struct {
	VoucherId       string                       `json:"voucherId"`
	Code            string                       `json:"code"`
	Source          string                       `json:"source"`
	MemberId        nullable.Nullable[string]    `json:"memberId"`
	IssuedOn        openapi_types.Date           `json:"issuedOn"`
	ExpiresAt       time.Time                    `json:"expiresAt"`
	DiscountPercent int                          `json:"discountPercent"`
	RedeemedAt      nullable.Nullable[time.Time] `json:"redeemedAt"`
	Status          string                       `json:"status"`
}

type VoucherResponse struct {
	Voucher Voucher `json:"voucher"`
}

type ListVouchersResponse struct {
	Vouchers []Voucher `json:"vouchers"`
}

// VoucherLookupResponse always carries a status; voucher is omitted for "none".
type VoucherLookupResponse struct {
	Status  string   `json:"status"`
	Voucher *Voucher `json:"voucher,omitempty"`
}

type IssueVoucherRequest struct {
	DiscountPercent int `json:"discountPercent"`
	// ValidForMinutes of 0 means until the end of the café day.
	ValidForMinutes int `json:"validForMinutes"`
}

type Session struct {
	SessionId    string                       `json:"sessionId"`
	MemberId     string                       `json:"memberId"`
	CheckedInAt  time.Time                    `json:"checkedInAt"`
	CheckedOutAt nullable.Nullable[time.Time] `json:"checkedOutAt"`
	AutoClosed   bool                         `json:"autoClosed"`
}

type SessionResponse struct {
	Session Session `json:"session"`
}

type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type Occupancy struct {
	Occupied  int `json:"occupied"`
	Capacity  int `json:"capacity"`
	Available int `json:"available"`
}

type Booking struct {
	BookingId  string                       `json:"bookingId"`
	Date       openapi_types.Date           `json:"date"`
	CreatedAt  time.Time                    `json:"createdAt"`
	CanceledAt nullable.Nullable[time.Time] `json:"canceledAt"`
	Active     bool                         `json:"active"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type BookRequest struct {
	Date openapi_types.Date `json:"date"`
}

type AvailabilityResponse struct {
	Date openapi_types.Date `json:"date"`
	Occupancy
}

type Payment struct {
	PaymentId   string             `json:"paymentId"`
	MemberId    string             `json:"memberId"`
	Plan        string             `json:"plan"`
	AmountCents int64              `json:"amountCents"`
	Method      string             `json:"method"`
	PeriodStart openapi_types.Date `json:"periodStart"`
	PeriodEnd   openapi_types.Date `json:"periodEnd"`
	RecordedBy  string             `json:"recordedBy"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type PaymentResponse struct {
	Payment Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []Payment `json:"payments"`
}

type RecordPaymentRequest struct {
	AmountCents int64   `json:"amountCents"`
	Method      string  `json:"method"`
	Plan        *string `json:"plan,omitempty"`
}

type Post struct {
	PostId     string    `json:"postId"`
	AuthorId   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PostResponse struct {
	Post Post `json:"post"`
}

type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type ActivityResponse struct {
	Entries []domain.ActivityEntry `json:"entries"`
}

type ResetResponse struct {
	Ran            bool                      `json:"ran"`
	SkipReason     nullable.Nullable[string] `json:"skipReason,omitempty"`
	Day            openapi_types.Date        `json:"day"`
	ClosedSessions int                       `json:"closedSessions"`
	PurgedVouchers int                       `json:"purgedVouchers"`
	PrunedKeys     int                       `json:"prunedKeys"`
}

func memberProfileFromDomain(m domain.Member) MemberProfile {
	return MemberProfile{
		MemberId:    string(m.ID),
		DisplayName: m.DisplayName,
		Email:       openapi_types.Email(m.Email),
		Phone:       m.Phone,
		Bio:         nullableString(m.Bio),
		Role:        string(m.Role),
		Status:      string(m.Status),
		Plan:        string(m.Plan),
		PaidThrough: nullableDate(m.PaidThrough),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func membersFromDomain(ms []domain.Member) []MemberProfile {
	out := make([]MemberProfile, 0, len(ms))
	for _, m := range ms {
		out = append(out, memberProfileFromDomain(m))
	}
	return out
}

func voucherFromDomain(v domain.Voucher, now time.Time) Voucher {
	out := Voucher{
		VoucherId:       string(v.ID),
		Code:            v.Code,
		Source:          string(v.Source),
		IssuedOn:        openapi_types.Date{Time: v.IssuedOn},
		ExpiresAt:       v.ExpiresAt,
		DiscountPercent: v.DiscountPercent,
		RedeemedAt:      nullableTime(v.RedeemedAt),
		Status:          string(v.StatusAt(now)),
	}
	if v.MemberID != nil {
		out.MemberId.Set(string(*v.MemberID))
	} else {
		out.MemberId.SetNull()
	}
	return out
}

func sessionFromDomain(s domain.Session) Session {
	return Session{
		SessionId:    string(s.ID),
		MemberId:     string(s.MemberID),
		CheckedInAt:  s.CheckedInAt,
		CheckedOutAt: nullableTime(s.CheckedOutAt),
		AutoClosed:   s.AutoClosed,
	}
}

func sessionsFromDomain(ss []domain.Session) []Session {
	out := make([]Session, 0, len(ss))
	for _, s := range ss {
		out = append(out, sessionFromDomain(s))
	}
	return out
}

func occupancyFromDomain(o domain.Occupancy) Occupancy {
	return Occupancy{Occupied: o.Occupied, Capacity: o.Capacity, Available: o.Available}
}

func bookingFromDomain(b domain.Booking) Booking {
	return Booking{
		BookingId:  string(b.ID),
		Date:       openapi_types.Date{Time: b.Date},
		CreatedAt:  b.CreatedAt,
		CanceledAt: nullableTime(b.CanceledAt),
		Active:     b.IsActive(),
	}
}

func availabilityFromDomain(a bookings.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Date:      openapi_types.Date{Time: a.Date},
		Occupancy: occupancyFromDomain(a.Occupancy),
	}
}

func paymentFromDomain(p domain.SubscriptionPeriod) Payment {
	return Payment{
		PaymentId:   string(p.ID),
		MemberId:    string(p.MemberID),
		Plan:        string(p.Plan),
		AmountCents: p.AmountCents,
		Method:      string(p.Method),
		PeriodStart: openapi_types.Date{Time: p.PeriodStart},
		PeriodEnd:   openapi_types.Date{Time: p.PeriodEnd},
		RecordedBy:  string(p.RecordedBy),
		CreatedAt:   p.CreatedAt,
	}
}

func postFromDomain(p domain.BoardPost) Post {
	return Post{
		PostId:     string(p.ID),
		AuthorId:   string(p.AuthorID),
		AuthorName: p.AuthorName,
		Title:      p.Title,
		Body:       p.Body,
		CreatedAt:  p.CreatedAt,
	}
}

func resetFromOutcome(o reset.Outcome) ResetResponse {
	out := ResetResponse{
		Ran:            o.Ran,
		Day:            openapi_types.Date{Time: o.Day},
		ClosedSessions: o.ClosedSessions,
		PurgedVouchers: o.PurgedVouchers,
		PrunedKeys:     o.PrunedKeys,
	}
	if o.SkipReason != "" {
		out.SkipReason.Set(o.SkipReason)
	}
	return out
}

// Nil pointers render as an explicit JSON null.
func nullableString(p *string) nullable.Nullable[string] {
	var out nullable.Nullable[string]
	if p == nil {
		out.SetNull()
	} else {
		out.Set(*p)
	}
	return out
}

func nullableTime(p *time.Time) nullable.Nullable[time.Time] {
	var out nullable.Nullable[time.Time]
	if p == nil {
		out.SetNull()
	} else {
		out.Set(p.UTC())
	}
	return out
}

func nullableDate(p *time.Time) nullable.Nullable[openapi_types.Date] {
	var out nullable.Nullable[openapi_types.Date]
	if p == nil {
		out.SetNull()
	} else {
		out.Set(openapi_types.Date{Time: p.UTC()})
	}
	return out
}

func updateMeInputFromRequest(b UpdateMeRequest) members.UpdateMeInput {
	out := members.UpdateMeInput{
		DisplayName: optionalStringFromNullable(b.DisplayName),
		Phone:       optionalStringFromNullable(b.Phone),
		Bio:         optionalStringFromNullable(b.Bio),
		Password:    optionalStringFromNullable(b.Password),
	}
	if b.CurrentPassword != nil {
		out.CurrentPassword = *b.CurrentPassword
	}
	return out
}

func optionalStringFromNullable(n nullable.Nullable[string]) members.Optional[string] {
	if !n.IsSpecified() {
		return members.Unspecified[string]()
	}
	if n.IsNull() {
		return members.Null[string]()
	}
	v, err := n.Get()
	if err != nil {
		return members.Unspecified[string]()
	}
	return members.Some(v)
}
