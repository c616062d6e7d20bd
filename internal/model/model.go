// Package model defines the record types stored in the document store.
package model

import "time"

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	Department  string     `json:"department,omitempty"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	IsActive    bool       `json:"isActive"`
	Permissions []string   `json:"permissions"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Assignee       string     `json:"assignee"`
	Reporter       string     `json:"reporter,omitempty"`
	ProjectID      string     `json:"projectId,omitempty"`
	Category       string     `json:"category,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	EstimatedHours float64    `json:"estimatedHours,omitempty"`
	ActualHours    float64    `json:"actualHours,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletedDate  *time.Time `json:"completedDate,omitempty"`
	Progress       int        `json:"progress,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type FinanceRecord struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"` // income or expense
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status,omitempty"`
	VendorName    string    `json:"vendorName,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type SocialMedia struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Facebook string `json:"facebook,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
}

type Lead struct {
	ID               string       `json:"id"`
	FirstName        string       `json:"firstName"`
	LastName         string       `json:"lastName"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone,omitempty"`
	Company          string       `json:"company,omitempty"`
	Position         string       `json:"position,omitempty"`
	Source           string       `json:"source"`
	Status           string       `json:"status"`
	Priority         string       `json:"priority"`
	ExpectedValue    float64      `json:"expectedValue,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Tags             []string     `json:"tags,omitempty"`
	AssignedTo       string       `json:"assignedTo,omitempty"`
	LastContactDate  *time.Time   `json:"lastContactDate,omitempty"`
	NextFollowUpDate *time.Time   `json:"nextFollowUpDate,omitempty"`
	Address          *Address     `json:"address,omitempty"`
	SocialMedia      *SocialMedia `json:"socialMedia,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type Meeting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Duration    int       `json:"duration"` // minutes
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	Agenda      string    `json:"agenda,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // file or folder
	ParentID   string    `json:"parentId,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Manager     string     `json:"manager,omitempty"`
	TeamMembers []string   `json:"teamMembers,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Budget      float64    `json:"budget,omitempty"`
	SpentAmount float64    `json:"spentAmount,omitempty"`
	Progress    int        `json:"progress,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
