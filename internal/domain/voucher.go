package domain

import "time"

// VoucherSource distinguishes member daily vouchers from codes issued at the till.
type VoucherSource string

const (
	VoucherSourceDaily VoucherSource = "DAILY"
	VoucherSourcePOS   VoucherSource = "POS"
)

// VoucherStatus is the outcome of looking a code up.
type VoucherStatus string

const (
	VoucherStatusNone     VoucherStatus = "none"
	VoucherStatusFound    VoucherStatus = "found"
	VoucherStatusExpired  VoucherStatus = "expired"
	VoucherStatusRedeemed VoucherStatus = "redeemed"
)

type Voucher struct {
	ID     VoucherID
	Code   string
	Source VoucherSource

	// MemberID is nil for POS vouchers.
	MemberID *MemberID

	IssuedOn        time.Time
	ExpiresAt       time.Time
	DiscountPercent int

	RedeemedAt *time.Time
	RedeemedBy *MemberID

	CreatedAt time.Time
}

// StatusAt classifies the voucher at instant now. Redemption wins over expiry.
func (v Voucher) StatusAt(now time.Time) VoucherStatus {
	if v.RedeemedAt != nil {
		return VoucherStatusRedeemed
	}
	if !now.Before(v.ExpiresAt) {
		return VoucherStatusExpired
	}
	return VoucherStatusFound
}

// SearchVoucher finds code in vs and classifies it. Codes are compared after
// NormalizeVoucherCode.
func SearchVoucher(vs []Voucher, code string, now time.Time) (VoucherStatus, *Voucher) {
	want := NormalizeVoucherCode(code)
	if want == "" {
		return VoucherStatusNone, nil
	}
	for i := range vs {
		if NormalizeVoucherCode(vs[i].Code) == want {
			v := vs[i]
			return v.StatusAt(now), &v
		}
	}
	return VoucherStatusNone, nil
}
