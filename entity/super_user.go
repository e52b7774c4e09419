package entity

// SuperUser is a privileged operator account. Password holds the
// HMAC-SHA256 hex digest of the password keyed with the server private key.
type SuperUser struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Password string `json:"-" gorm:"type:varchar(64);not null"`
}

func (SuperUser) TableName() string {
	return "super_users"
}
