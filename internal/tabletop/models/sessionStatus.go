package models

// SessionStatus is the lifecycle state of a recorded session
type SessionStatus string

const (
	StatusOpen   SessionStatus = "OPEN"
	StatusClosed SessionStatus = "CLOSED"
)

func (s SessionStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}
