package models

// Session is the logged-in user record persisted on the device.
type Session struct {
	UserID    FlexString `json:"userid"`
	MobileNo  FlexString `json:"mobile_no"`
	FirstName string     `json:"firstname"`
	LastName  string     `json:"lastname"`
	Email     string     `json:"email,omitempty"`
	Address1  string     `json:"address1,omitempty"`
	Address2  string     `json:"address2,omitempty"`
	City      string     `json:"city,omitempty"`
	State     string     `json:"state,omitempty"`
	Pincode   FlexString `json:"pincode,omitempty"`
}

// Valid reports whether the record identifies a user.
func (s Session) Valid() bool {
	return s.UserID.String() != ""
}

// DisplayName joins first and last name.
func (s Session) DisplayName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
