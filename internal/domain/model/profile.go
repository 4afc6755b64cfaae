package model

import "time"

// ProfileKind names an accessibility template.
type ProfileKind string

const (
	ProfileProsthesis ProfileKind = "prosthesis"
	ProfileWheelchair ProfileKind = "wheelchair"
)

// Difficulty levels offered by the signup wizard.
const (
	DifficultyNone       = "no impairment"
	DifficultyCrutches   = "crutches/walking stick"
	DifficultyProsthesis = "prosthesis"
	DifficultyWheelchair = "wheelchair"
)

// Preferences is what the signup wizard stores for an account. MaxSlope is
// the age slider value for wizard accounts and the slope threshold for
// accounts edited from the profile panel.
type Preferences struct {
	Difficulty      string `json:"difficulty" db:"difficulty" validate:"required,oneof='no impairment' 'crutches/walking stick' prosthesis wheelchair"`
	MaxSlope        int    `json:"maxSlope" db:"max_slope" validate:"gte=0,lte=120"`
	AvoidStairs     bool   `json:"avoidStairs" db:"avoid_stairs"`
	PreferElevators bool   `json:"preferElevators" db:"prefer_elevators"`
}

// AccessibilityProfile is the routing-relevant view of Preferences.
type AccessibilityProfile struct {
	Kind            ProfileKind
	AvoidStairs     bool
	PreferElevators bool
	MaxSlope        int
}

func (p Preferences) Profile() AccessibilityProfile {
	return AccessibilityProfile{
		Kind:            ProfileKind(p.Difficulty),
		AvoidStairs:     p.AvoidStairs,
		PreferElevators: p.PreferElevators,
		MaxSlope:        p.MaxSlope,
	}
}

type User struct {
	ID           int64        `json:"id" db:"id"`
	Username     string       `json:"username" db:"username"`
	Email        string       `json:"email" db:"email"`
	PasswordHash string       `json:"-" db:"password_hash"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	Preferences  *Preferences `json:"preferences,omitempty" db:"-"`
}
