package push

// Payload is the JSON document delivered to each subscriber endpoint. The
// shape matches what the gym owner dashboard's service worker expects.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon"`
	Badge string      `json:"badge"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the identifiers the dashboard uses to route a click
// on the notification. MemberID is zero when the push summarizes more than
// one member.
type PayloadData struct {
	MemberID int64  `json:"member_id"`
	GymID    int64  `json:"gym_id"`
	Type     string `json:"type"`
}
