package enum

import (
	"database/sql/driver"
	"fmt"
)

// AbuseType classifies why a vote was rejected by the heuristic chain.
type AbuseType int

const (
	// AbuseTypeSelfVote indicates a user voting on their own prompt.
	AbuseTypeSelfVote AbuseType = iota
	// AbuseTypeAccountAge indicates the voter account is younger than the minimum age.
	AbuseTypeAccountAge
	// AbuseTypeExcessiveRate indicates the voter exceeded the hourly or daily vote cap.
	AbuseTypeExcessiveRate
	// AbuseTypeIPClustering indicates too many votes originated from one IP address.
	AbuseTypeIPClustering
	// AbuseTypeCoordinatedVoting indicates too many distinct users share one IP address.
	AbuseTypeCoordinatedVoting
	// AbuseTypeRapidVoting indicates bot-like vote spacing below the minimum interval.
	AbuseTypeRapidVoting
	// AbuseTypeVoteManipulation indicates repeated targeting of a single author's prompts.
	AbuseTypeVoteManipulation
	// AbuseTypeDeviceFingerprint indicates too many distinct users share one device signature.
	AbuseTypeDeviceFingerprint
)

var abuseTypeNames = map[AbuseType]string{
	AbuseTypeSelfVote:          "SELF_VOTE_ATTEMPT",
	AbuseTypeAccountAge:        "SUSPICIOUS_ACCOUNT_AGE",
	AbuseTypeExcessiveRate:     "EXCESSIVE_VOTING_RATE",
	AbuseTypeIPClustering:      "IP_CLUSTERING",
	AbuseTypeCoordinatedVoting: "COORDINATED_VOTING",
	AbuseTypeRapidVoting:       "RAPID_VOTING_PATTERN",
	AbuseTypeVoteManipulation:  "VOTE_MANIPULATION",
	AbuseTypeDeviceFingerprint: "DEVICE_FINGERPRINTING",
}

var abuseTypeValues = reverse(abuseTypeNames)

// AbuseTypes returns all abuse types in chain priority order.
func AbuseTypes() []AbuseType {
	return []AbuseType{
		AbuseTypeSelfVote,
		AbuseTypeAccountAge,
		AbuseTypeExcessiveRate,
		AbuseTypeIPClustering,
		AbuseTypeCoordinatedVoting,
		AbuseTypeRapidVoting,
		AbuseTypeVoteManipulation,
		AbuseTypeDeviceFingerprint,
	}
}

func (t AbuseType) String() string { return abuseTypeNames[t] }

// ParseAbuseType converts a wire name into an AbuseType.
func ParseAbuseType(s string) (AbuseType, error) {
	v, ok := abuseTypeValues[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, s)
	}

	return v, nil
}

func (t AbuseType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *AbuseType) UnmarshalText(text []byte) error {
	v, err := ParseAbuseType(string(text))
	if err != nil {
		return err
	}

	*t = v

	return nil
}

func (t AbuseType) Value() (driver.Value, error) { return t.String(), nil }

func (t *AbuseType) Scan(src any) error { return scanEnum(src, t, ParseAbuseType) }

// AbuseSeverity ranks detections for notification policy.
type AbuseSeverity int

const (
	AbuseSeverityLow AbuseSeverity = iota
	AbuseSeverityMedium
	AbuseSeverityHigh
	AbuseSeverityCritical
)

var abuseSeverityNames = map[AbuseSeverity]string{
	AbuseSeverityLow:      "LOW",
	AbuseSeverityMedium:   "MEDIUM",
	AbuseSeverityHigh:     "HIGH",
	AbuseSeverityCritical: "CRITICAL",
}

var abuseSeverityValues = reverse(abuseSeverityNames)

// AbuseSeverities returns all severities in ascending order.
func AbuseSeverities() []AbuseSeverity {
	return []AbuseSeverity{AbuseSeverityLow, AbuseSeverityMedium, AbuseSeverityHigh, AbuseSeverityCritical}
}

func (s AbuseSeverity) String() string { return abuseSeverityNames[s] }

// Immediate reports whether the severity warrants an immediate admin notification.
func (s AbuseSeverity) Immediate() bool {
	return s >= AbuseSeverityHigh
}

// ParseAbuseSeverity converts a wire name into an AbuseSeverity.
func ParseAbuseSeverity(str string) (AbuseSeverity, error) {
	v, ok := abuseSeverityValues[str]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, str)
	}

	return v, nil
}

func (s AbuseSeverity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AbuseSeverity) UnmarshalText(text []byte) error {
	v, err := ParseAbuseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

func (s AbuseSeverity) Value() (driver.Value, error) { return s.String(), nil }

func (s *AbuseSeverity) Scan(src any) error { return scanEnum(src, s, ParseAbuseSeverity) }

// AbuseStatus tracks a detection through the investigation workflow.
type AbuseStatus int

const (
	AbuseStatusPending AbuseStatus = iota
	AbuseStatusInvestigating
	AbuseStatusConfirmed
	AbuseStatusFalsePositive
	AbuseStatusResolved
)

var abuseStatusNames = map[AbuseStatus]string{
	AbuseStatusPending:       "PENDING",
	AbuseStatusInvestigating: "INVESTIGATING",
	AbuseStatusConfirmed:     "CONFIRMED",
	AbuseStatusFalsePositive: "FALSE_POSITIVE",
	AbuseStatusResolved:      "RESOLVED",
}

var abuseStatusValues = reverse(abuseStatusNames)

// AbuseStatuses returns all statuses.
func AbuseStatuses() []AbuseStatus {
	return []AbuseStatus{
		AbuseStatusPending,
		AbuseStatusInvestigating,
		AbuseStatusConfirmed,
		AbuseStatusFalsePositive,
		AbuseStatusResolved,
	}
}

func (s AbuseStatus) String() string { return abuseStatusNames[s] }

// Terminal reports whether the status permits no further transitions.
func (s AbuseStatus) Terminal() bool {
	switch s {
	case AbuseStatusConfirmed, AbuseStatusFalsePositive, AbuseStatusResolved:
		return true
	case AbuseStatusPending, AbuseStatusInvestigating:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// investigation transition. Terminal states reject every move, including
// re-opening a resolved case.
func (s AbuseStatus) CanTransitionTo(next AbuseStatus) bool {
	if s.Terminal() {
		return false
	}

	switch s {
	case AbuseStatusPending:
		return next == AbuseStatusInvestigating ||
			next == AbuseStatusResolved ||
			next == AbuseStatusFalsePositive
	case AbuseStatusInvestigating:
		return next == AbuseStatusConfirmed ||
			next == AbuseStatusResolved ||
			next == AbuseStatusFalsePositive
	case AbuseStatusConfirmed, AbuseStatusFalsePositive, AbuseStatusResolved:
		return false
	default:
		return false
	}
}

// ParseAbuseStatus converts a wire name into an AbuseStatus.
func ParseAbuseStatus(str string) (AbuseStatus, error) {
	v, ok := abuseStatusValues[str]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, str)
	}

	return v, nil
}

func (s AbuseStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AbuseStatus) UnmarshalText(text []byte) error {
	v, err := ParseAbuseStatus(string(text))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

func (s AbuseStatus) Value() (driver.Value, error) { return s.String(), nil }

func (s *AbuseStatus) Scan(src any) error { return scanEnum(src, s, ParseAbuseStatus) }

// InvestigationAction is an admin action applied to a detection.
type InvestigationAction int

const (
	InvestigationActionStart InvestigationAction = iota
	InvestigationActionResolve
	InvestigationActionMarkFalsePositive
	InvestigationActionConfirm
)

var investigationActionNames = map[InvestigationAction]string{
	InvestigationActionStart:             "start_investigation",
	InvestigationActionResolve:           "resolve",
	InvestigationActionMarkFalsePositive: "mark_false_positive",
	InvestigationActionConfirm:           "confirm",
}

var investigationActionValues = reverse(investigationActionNames)

func (a InvestigationAction) String() string { return investigationActionNames[a] }

// TargetStatus returns the detection status this action transitions to.
func (a InvestigationAction) TargetStatus() AbuseStatus {
	switch a {
	case InvestigationActionStart:
		return AbuseStatusInvestigating
	case InvestigationActionResolve:
		return AbuseStatusResolved
	case InvestigationActionMarkFalsePositive:
		return AbuseStatusFalsePositive
	case InvestigationActionConfirm:
		return AbuseStatusConfirmed
	default:
		return AbuseStatusPending
	}
}

// ParseInvestigationAction converts a wire name into an InvestigationAction.
func ParseInvestigationAction(str string) (InvestigationAction, error) {
	v, ok := investigationActionValues[str]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, str)
	}

	return v, nil
}
