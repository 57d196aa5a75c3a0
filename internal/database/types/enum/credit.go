package enum

import (
	"database/sql/driver"
	"fmt"
)

// CreditType classifies entries in the credit ledger.
type CreditType int

const (
	// CreditTypeVoteReward is a grant caused by a qualifying upvote.
	CreditTypeVoteReward CreditType = iota
	// CreditTypePurchase is a paid credit top-up.
	CreditTypePurchase
	// CreditTypeSpend is a debit for consuming a paid feature.
	CreditTypeSpend
	// CreditTypeAdjustment is a manual admin correction.
	CreditTypeAdjustment
)

var creditTypeNames = map[CreditType]string{
	CreditTypeVoteReward: "VOTE_REWARD",
	CreditTypePurchase:   "PURCHASE",
	CreditTypeSpend:      "SPEND",
	CreditTypeAdjustment: "ADJUSTMENT",
}

var creditTypeValues = reverse(creditTypeNames)

func (t CreditType) String() string { return creditTypeNames[t] }

// ParseCreditType converts a wire name into a CreditType.
func ParseCreditType(s string) (CreditType, error) {
	v, ok := creditTypeValues[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, s)
	}

	return v, nil
}

func (t CreditType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *CreditType) UnmarshalText(text []byte) error {
	v, err := ParseCreditType(string(text))
	if err != nil {
		return err
	}

	*t = v

	return nil
}

func (t CreditType) Value() (driver.Value, error) { return t.String(), nil }

func (t *CreditType) Scan(src any) error { return scanEnum(src, t, ParseCreditType) }

// PlanType is a user's subscription tier.
type PlanType int

const (
	PlanTypeFree PlanType = iota
	PlanTypePro
	PlanTypeElite
)

var planTypeNames = map[PlanType]string{
	PlanTypeFree:  "FREE",
	PlanTypePro:   "PRO",
	PlanTypeElite: "ELITE",
}

var planTypeValues = reverse(planTypeNames)

func (t PlanType) String() string { return planTypeNames[t] }

// ParsePlanType converts a wire name into a PlanType.
func ParsePlanType(s string) (PlanType, error) {
	v, ok := planTypeValues[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, s)
	}

	return v, nil
}

func (t PlanType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PlanType) UnmarshalText(text []byte) error {
	v, err := ParsePlanType(string(text))
	if err != nil {
		return err
	}

	*t = v

	return nil
}

func (t PlanType) Value() (driver.Value, error) { return t.String(), nil }

func (t *PlanType) Scan(src any) error { return scanEnum(src, t, ParsePlanType) }
