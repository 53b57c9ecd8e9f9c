// internal/domain/user/user.go
package user

// DefaultDisplayName is used in logs when a user has no username.
const DefaultDisplayName = "User"

// User is the subset of a user record the reminder job reads.
// Owned by the app's user-management flow; this service only reads it and may clear PushToken.
type User struct {
	ID               string
	PushToken        string  // FCM registration token, empty when the device never registered or the token was cleared
	DailyCalorieGoal float64 // zero means no goal set
	Username         string
}

// DisplayName returns the username or DefaultDisplayName.
func (u *User) DisplayName() string {
	if u.Username == "" {
		return DefaultDisplayName
	}
	return u.Username
}

// HasPushToken reports whether a delivery token is stored.
func (u *User) HasPushToken() bool {
	return u.PushToken != ""
}

// HasCalorieGoal reports whether a non-zero daily goal is stored.
func (u *User) HasCalorieGoal() bool {
	return u.DailyCalorieGoal != 0
}
