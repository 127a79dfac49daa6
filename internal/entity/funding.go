package entity

import (
	"math/big"
)

// FundingKind discriminates the two funding event variants
type FundingKind string

const (
	FundingGlobalUpdate FundingKind = "GLOBAL_UPDATE"
	FundingUserPaid     FundingKind = "USER_PAID"
)

// FundingDetail is the closed variant payload of a FundingEvent.
// Exactly one concrete type exists per FundingKind; a global update
// never carries a trader and a user payment never carries a rate.
type FundingDetail interface {
	FundingKind() FundingKind
}

// GlobalFundingUpdate is the contract rolling the cumulative funding
// rate forward for everyone.
type GlobalFundingUpdate struct {
	CumulativeRate *big.Int // 18-decimal fixed point
}

func (GlobalFundingUpdate) FundingKind() FundingKind {
	return FundingGlobalUpdate
}

// UserFundingPayment is one trader's settled funding transfer.
// Payment is signed: positive means the trader received funding.
type UserFundingPayment struct {
	Trader  string
	Payment *big.Int // signed, 18-decimal fixed point
}

func (UserFundingPayment) FundingKind() FundingKind {
	return FundingUserPaid
}

// FundingEvent is an append-only audit row for a funding occurrence.
// ID is the emitting log's "{txHash}-{logIndex}".
type FundingEvent struct {
	ID        string
	Detail    FundingDetail
	Timestamp int64
}

// Kind returns the variant discriminator.
func (f *FundingEvent) Kind() FundingKind {
	if f.Detail == nil {
		return ""
	}
	return f.Detail.FundingKind()
}
