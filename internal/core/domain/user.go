package domain

// User is a row of the users table. Optional attributes are nil when absent
// and serialize as JSON null.
type User struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Role      *string `json:"role"`
	Country   *string `json:"country"`
}

// UserInput carries every mutable attribute of a user. It is the request body
// for both create and update, as JSON or as a url-encoded form: an update
// overwrites all fields, so an omitted optional attribute is stored as null.
type UserInput struct {
	FirstName string  `json:"firstName" form:"firstName" binding:"required"`
	LastName  string  `json:"lastName" form:"lastName" binding:"required"`
	Email     string  `json:"email" form:"email" binding:"required"`
	Phone     *string `json:"phone" form:"phone"`
	Company   *string `json:"company" form:"company"`
	Role      *string `json:"role" form:"role"`
	Country   *string `json:"country" form:"country"`
}

// Normalize turns empty optional strings into nil.
func (in UserInput) Normalize() UserInput {
	in.Phone = nullable(in.Phone)
	in.Company = nullable(in.Company)
	in.Role = nullable(in.Role)
	in.Country = nullable(in.Country)
	return in
}

// ToUser builds the User that results from applying in to the row id.
func (in UserInput) ToUser(id int64) *User {
	return &User{
		ID:        id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Role:      in.Role,
		Country:   in.Country,
	}
}

func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
