package model

import "time"

// Application is a single applicant submission. The JSON field names match
// the public form payload; the code is a short human-enterable identifier
// the applicant can use to look the submission up later.
type Application struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Nick        string    `json:"nick" db:"nick"`
	GameNick    string    `json:"gameNick" db:"game_nick"`
	RealName    string    `json:"realName" db:"real_name"`
	SubmittedAt time.Time `json:"date" db:"submitted_at"`
	Status      string    `json:"status" db:"status"`
	Age         string    `json:"age" db:"age"`
	Discord     string    `json:"discord" db:"discord"`
	Online      string    `json:"online" db:"online"`
	Majestic    string    `json:"majestic" db:"majestic"`
	Timezone    string    `json:"tz" db:"tz"`
	Interests   string    `json:"interests" db:"interests"`
	Surname     string    `json:"surname" db:"surname"`
	Comment     string    `json:"comment" db:"comment"`
}

// StatusPending is the initial status for new submissions.
const StatusPending = "pending"
