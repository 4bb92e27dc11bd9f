package models

// Department is a named specialty grouping for doctors.
type Department struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// Doctors holds the accounts whose DepartmentID points here.
	Doctors []User `gorm:"foreignKey:DepartmentID" json:"doctors,omitempty"`
}
