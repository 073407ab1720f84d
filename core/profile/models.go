package profile

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ajira/core"
)

// Admin roles
const (
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"
	RoleAdminStaff = "admin:staff"
)

var AdminRoles = []string{RoleAdmin, RoleAdminOwner, RoleAdminStaff}

// Teacher is a candidate profile. Contact and document fields are hidden
// from schools until unlocked; see Redacted.
type Teacher struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Phone     string            `json:"phone,omitempty"`
	Subjects  []string          `json:"subjects"`
	CVURL     string            `json:"cv_url,omitempty"`
	VideoURL  string            `json:"video_url,omitempty"`
	PhotoURL  string            `json:"photo_url,omitempty"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"` // UTC
	UpdatedAt time.Time         `json:"updated_at"` // UTC
}

func (t Teacher) FullName() string {
	return core.CleanString(t.FirstName + " " + t.LastName)
}

// Redacted strips the fields a school only gets after unlocking the
// candidate.
func (t Teacher) Redacted() Teacher {
	t.Phone = ""
	t.CVURL = ""
	t.VideoURL = ""
	return t
}

// AdminUser is a back-office operator profile.
type AdminUser struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (a AdminUser) IsOwner() bool {
	for _, role := range a.Roles {
		if role == RoleAdminOwner {
			return true
		}
	}
	return false
}

// SchoolAccount is a hiring-school profile. HasPaid gates access to
// unredacted teacher records.
type SchoolAccount struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	SchoolName         string    `json:"school_name"`
	ContactName        string    `json:"contact_name"`
	Phone              string    `json:"phone,omitempty"`
	Country            string    `json:"country,omitempty"`
	HasPaid            bool      `json:"has_paid"`
	UnlockedTeacherIDs []string  `json:"unlocked_teacher_ids"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

func (s SchoolAccount) HasUnlocked(teacherID string) bool {
	for _, id := range s.UnlockedTeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// NewTeacher contains information needed to create a new Teacher profile.
type NewTeacher struct {
	AccountID string   `json:"-"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Phone     string   `json:"phone" validate:"omitempty,phone"`
	Subjects  []string `json:"subjects" validate:"required,min=1"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Phone = core.CleanString(nt.Phone)
	return validate.Struct(nt)
}

// UpdateTeacher defines what a teacher may change on their own profile.
// Status is deliberately absent; it only moves through admin action.
type UpdateTeacher struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone" validate:"omitempty,phone"`
	Subjects  []string `json:"subjects" validate:"omitempty,min=1"`
	CVURL     string   `json:"cv_url" validate:"omitempty,url"`
	VideoURL  string   `json:"video_url" validate:"omitempty,url"`
	PhotoURL  string   `json:"photo_url" validate:"omitempty,url"`
}

func (ut *UpdateTeacher) Validate(origTeacher Teacher, validate *validator.Validate) error {
	if name := core.CleanString(ut.FirstName); name != "" {
		ut.FirstName = name
	} else {
		ut.FirstName = origTeacher.FirstName
	}
	if name := core.CleanString(ut.LastName); name != "" {
		ut.LastName = name
	} else {
		ut.LastName = origTeacher.LastName
	}
	ut.Phone = core.CleanString(ut.Phone)
	return validate.Struct(ut)
}

// NewAdmin contains information needed to create a new AdminUser profile.
type NewAdmin struct {
	AccountID string   `json:"-"`
	Name      string   `json:"name" validate:"required"`
	Roles     []string `json:"roles" validate:"omitempty,dive,oneof=admin: admin:owner admin:staff"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	return validate.Struct(na)
}

// NewSchool contains information needed to create a new SchoolAccount profile.
type NewSchool struct {
	AccountID   string `json:"-"`
	SchoolName  string `json:"school_name" validate:"required"`
	ContactName string `json:"contact_name" validate:"required"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Country     string `json:"country"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.SchoolName = core.CleanString(ns.SchoolName)
	ns.ContactName = core.CleanString(ns.ContactName)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Country = core.CleanString(ns.Country)
	return validate.Struct(ns)
}

// UpdateSchool defines what a school may change on their own profile.
type UpdateSchool struct {
	SchoolName  string `json:"school_name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Country     string `json:"country"`
}

func (us *UpdateSchool) Validate(origSchool SchoolAccount, validate *validator.Validate) error {
	if name := core.CleanString(us.SchoolName); name != "" {
		us.SchoolName = name
	} else {
		us.SchoolName = origSchool.SchoolName
	}
	if name := core.CleanString(us.ContactName); name != "" {
		us.ContactName = name
	} else {
		us.ContactName = origSchool.ContactName
	}
	us.Phone = core.CleanString(us.Phone)
	us.Country = core.CleanString(us.Country)
	return validate.Struct(us)
}

// TeacherFilter applies AND operation on available fields.
// Search does a case-insensitive match on first name, last name or subject.
type TeacherFilter struct {
	Search      string              `query:"search"`
	Statuses    []ApplicationStatus `query:"status"`
	Subjects    []string            `query:"subject"`
	CreatedFrom time.Time           `query:"created_from"`
	CreatedTo   time.Time           `query:"created_to"`
}

func (tf *TeacherFilter) IsEmpty() bool {
	return tf.Search == "" && tf.Statuses == nil && tf.Subjects == nil &&
		tf.CreatedFrom.IsZero() && tf.CreatedTo.IsZero()
}

func (tf *TeacherFilter) Clean() {
	tf.Search = core.CleanString(tf.Search)
}
