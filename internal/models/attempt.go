package models

import (
	"fmt"
	"math/big"
	"time"
)

type AttemptStatus string

const (
	AttemptStatusIdle      AttemptStatus = "idle"
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusSubmitted AttemptStatus = "submitted"
	AttemptStatusConfirmed AttemptStatus = "confirmed"
	AttemptStatusDecoding  AttemptStatus = "decoding"
	AttemptStatusStalled   AttemptStatus = "stalled"
	AttemptStatusSuccess   AttemptStatus = "success"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// attemptTransitions lists the states each state may move to
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptStatusIdle:      {AttemptStatusPending, AttemptStatusSubmitted, AttemptStatusFailed},
	AttemptStatusPending:   {AttemptStatusSubmitted, AttemptStatusFailed},
	AttemptStatusSubmitted: {AttemptStatusConfirmed, AttemptStatusStalled, AttemptStatusFailed},
	AttemptStatusStalled:   {AttemptStatusConfirmed, AttemptStatusStalled, AttemptStatusFailed},
	AttemptStatusConfirmed: {AttemptStatusDecoding, AttemptStatusFailed},
	AttemptStatusDecoding:  {AttemptStatusSuccess, AttemptStatusFailed},
}

// CanTransition reports whether an attempt in status s may move to next
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptStatusSuccess || s == AttemptStatusFailed
}

type ReferralStatus string

const (
	ReferralStatusNone      ReferralStatus = ""
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusSubmitted ReferralStatus = "submitted"
	ReferralStatusFailed    ReferralStatus = "failed"
)

type PaymentSource string

const (
	PaymentSourceOracle   PaymentSource = "oracle"
	PaymentSourceCache    PaymentSource = "cache"
	PaymentSourceFallback PaymentSource = "fallback"
	PaymentSourceZero     PaymentSource = "zero"
)

// RequiredPayment is the native-currency amount attached to a deployment call
type RequiredPayment struct {
	Amount *big.Int      `json:"amount"`
	Cents  uint64        `json:"cents"`
	Source PaymentSource `json:"source"`
}

// DeploymentAttempt tracks one run of the playlist deployment flow. A retry creates a
// new attempt with a new salt.
type DeploymentAttempt struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	ChainID          uint64         `gorm:"index;not null" json:"chain_id"`
	FactoryAddress   string         `gorm:"not null" json:"factory_address"`
	PriceFeedAddress string         `gorm:"not null" json:"price_feed_address"`
	OwnerAddress     string         `gorm:"index;not null" json:"owner_address"`
	Name             string         `gorm:"not null" json:"name"`
	CoverImageURL    string         `json:"cover_image_url"`
	Description      string         `gorm:"type:text" json:"description"`
	Tags             StringList     `gorm:"type:text" json:"tags"`
	Salt             string         `gorm:"not null;uniqueIndex" json:"salt"`
	Value            string         `gorm:"not null" json:"value"` // wei
	PaymentSource    PaymentSource  `json:"payment_source"`
	CallData         string         `gorm:"type:text" json:"call_data"`
	SessionID        string         `gorm:"index" json:"session_id,omitempty"`
	TransactionHash  string         `gorm:"index" json:"transaction_hash,omitempty"`
	PredictedAddress string         `json:"predicted_address,omitempty"`
	PlaylistAddress  string         `json:"playlist_address,omitempty"`
	Status           AttemptStatus  `gorm:"index;default:idle" json:"status"`
	Message          string         `json:"message,omitempty"`
	ReferralStatus   ReferralStatus `json:"referral_status,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ValueWei returns the attached payment as an integer
func (a DeploymentAttempt) ValueWei() (*big.Int, error) {
	v, ok := new(big.Int).SetString(a.Value, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q on attempt %s", a.Value, a.ID)
	}
	return v, nil
}

// Draft rebuilds the draft the attempt was prepared from
func (a DeploymentAttempt) Draft() PlaylistDraft {
	return PlaylistDraft{
		Name:          a.Name,
		CoverImageURL: a.CoverImageURL,
		Description:   a.Description,
		Tags:          []string(a.Tags),
		OwnerAddress:  a.OwnerAddress,
	}
}
