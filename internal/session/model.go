package session

// Session holds the credentials of a logged-in wallet user. It is created at
// login, rehydrated from the store on every request and destroyed at logout.
type Session struct {
	ID          string `json:"session_id"`
	Username    string `json:"username"`
	AccessToken string `json:"-"`
	DID         string `json:"did"`
}

// Valid reports whether the session carries the credentials needed to call
// the wallet on the user's behalf.
func (s Session) Valid() bool {
	return s.ID != "" && s.AccessToken != ""
}

// Status classifies the outcome of a storage read.
type Status int

const (
	// StatusPresent means a value was found.
	StatusPresent Status = iota
	// StatusAbsent means the key does not exist.
	StatusAbsent
	// StatusUnavailable means the storage could not be read.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	default:
		return "unavailable"
	}
}

// Lookup is the result of reading one key.
type Lookup struct {
	Value  string
	Status Status
	Err    error
}
