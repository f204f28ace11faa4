package domain

import "time"

// StateTTL bounds how long an issued OAuth state is accepted.
const StateTTL = 10 * time.Minute

// OAuthState binds an unguessable state token to the shop (or subject) an
// authorization flow was started for. A state is single-use: it is consumed
// exactly once by the callback and rejected on any later presentation.
type OAuthState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
}
