package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
)

var (
	// errors
	ErrNotFound          = errors.New("profile record not found")
	ErrInvalidTransition = errors.New("invalid application status transition")
	ErrPaymentRequired   = errors.New("school has not paid for candidate access")
)

type (
	TeacherRepository interface {
		CreateTeacher(t Teacher) (Teacher, error)
		GetTeacherByID(id string) (Teacher, error)
		GetTeacherByAccountID(accountID string) (Teacher, error)
		// FilterTeachers applies AND operation on available TeacherFilter fields.
		FilterTeachers(filter TeacherFilter, orderings ...core.DBOrdering) ([]Teacher, error)
		UpdateTeacher(t Teacher) (Teacher, error)
		SetTeacherStatus(id string, status ApplicationStatus) (Teacher, error)
		DeleteTeachersByID(ids ...string) error
	}

	AdminRepository interface {
		CreateAdmin(a AdminUser) (AdminUser, error)
		GetAdminByID(id string) (AdminUser, error)
		GetAdminByAccountID(accountID string) (AdminUser, error)
		QueryAllAdmins() ([]AdminUser, error)
		DeleteAdminsByID(ids ...string) error
	}

	SchoolRepository interface {
		CreateSchool(s SchoolAccount) (SchoolAccount, error)
		GetSchoolByID(id string) (SchoolAccount, error)
		GetSchoolByAccountID(accountID string) (SchoolAccount, error)
		QueryAllSchools() ([]SchoolAccount, error)
		UpdateSchool(s SchoolAccount) (SchoolAccount, error)
		SetSchoolPaid(id string, paid bool) (SchoolAccount, error)
		AddUnlockedTeacher(schoolID, teacherID string) (SchoolAccount, error)
	}

	Service struct {
		teachers TeacherRepository
		admins   AdminRepository
		schools  SchoolRepository
	}
)

func NewService(teachers TeacherRepository, admins AdminRepository, schools SchoolRepository) *Service {
	return &Service{
		teachers: teachers,
		admins:   admins,
		schools:  schools,
	}
}

// Teachers

func (svc *Service) CreateTeacher(nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		ID:        uuid.New().String(),
		AccountID: nt.AccountID,
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		Phone:     nt.Phone,
		Subjects:  nt.Subjects,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.teachers.CreateTeacher(t)
}

func (svc *Service) GetTeacherByID(id string) (Teacher, error) {
	return svc.teachers.GetTeacherByID(id)
}

func (svc *Service) GetTeacherByAccountID(accountID string) (Teacher, error) {
	return svc.teachers.GetTeacherByAccountID(accountID)
}

func (svc *Service) FilterTeachers(filter *TeacherFilter, orderings ...core.DBOrdering) ([]Teacher, error) {
	filter.Clean()
	return svc.teachers.FilterTeachers(*filter, orderings...)
}

func (svc *Service) UpdateTeacher(id string, ut UpdateTeacher) (Teacher, error) {
	t, err := svc.teachers.GetTeacherByID(id)
	if err != nil {
		return Teacher{}, err
	}
	t.FirstName = ut.FirstName
	t.LastName = ut.LastName
	t.Phone = ut.Phone
	if ut.Subjects != nil {
		t.Subjects = ut.Subjects
	}
	if ut.CVURL != "" {
		t.CVURL = ut.CVURL
	}
	if ut.VideoURL != "" {
		t.VideoURL = ut.VideoURL
	}
	if ut.PhotoURL != "" {
		t.PhotoURL = ut.PhotoURL
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.teachers.UpdateTeacher(t)
}

// TransitionStatus moves a candidate along the placement pipeline. Backward
// moves and moves out of a terminal status are rejected.
func (svc *Service) TransitionStatus(id string, to ApplicationStatus) (Teacher, error) {
	t, err := svc.teachers.GetTeacherByID(id)
	if err != nil {
		return Teacher{}, err
	}
	if !t.Status.CanTransition(to) {
		return Teacher{}, core.NewValidationError(
			ErrInvalidTransition,
			core.FieldError{Field: "status", Error: ErrInvalidTransition.Error()},
		)
	}
	return svc.teachers.SetTeacherStatus(id, to)
}

// Admins

func (svc *Service) CreateAdmin(na NewAdmin) (AdminUser, error) {
	now := time.Now().UTC()
	roles := na.Roles
	if roles == nil {
		roles = []string{RoleAdmin}
	}
	a := AdminUser{
		ID:        uuid.New().String(),
		AccountID: na.AccountID,
		Name:      na.Name,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.admins.CreateAdmin(a)
}

func (svc *Service) QueryAllAdmins() ([]AdminUser, error) {
	return svc.admins.QueryAllAdmins()
}

// Schools

func (svc *Service) CreateSchool(ns NewSchool) (SchoolAccount, error) {
	now := time.Now().UTC()
	s := SchoolAccount{
		ID:          uuid.New().String(),
		AccountID:   ns.AccountID,
		SchoolName:  ns.SchoolName,
		ContactName: ns.ContactName,
		Phone:       ns.Phone,
		Country:     ns.Country,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.schools.CreateSchool(s)
}

func (svc *Service) GetSchoolByID(id string) (SchoolAccount, error) {
	return svc.schools.GetSchoolByID(id)
}

func (svc *Service) GetSchoolByAccountID(accountID string) (SchoolAccount, error) {
	return svc.schools.GetSchoolByAccountID(accountID)
}

func (svc *Service) QueryAllSchools() ([]SchoolAccount, error) {
	return svc.schools.QueryAllSchools()
}

func (svc *Service) UpdateSchool(id string, us UpdateSchool) (SchoolAccount, error) {
	s, err := svc.schools.GetSchoolByID(id)
	if err != nil {
		return SchoolAccount{}, err
	}
	s.SchoolName = us.SchoolName
	s.ContactName = us.ContactName
	s.Phone = us.Phone
	s.Country = us.Country
	s.UpdatedAt = time.Now().UTC()
	return svc.schools.UpdateSchool(s)
}

func (svc *Service) SetSchoolPaid(id string, paid bool) (SchoolAccount, error) {
	return svc.schools.SetSchoolPaid(id, paid)
}

// UnlockTeacher records that a paying school unlocked a candidate and
// returns the unredacted record. Unpaid schools get ErrPaymentRequired.
func (svc *Service) UnlockTeacher(schoolID, teacherID string) (Teacher, error) {
	s, err := svc.schools.GetSchoolByID(schoolID)
	if err != nil {
		return Teacher{}, err
	}
	if !s.HasPaid {
		return Teacher{}, ErrPaymentRequired
	}

	t, err := svc.teachers.GetTeacherByID(teacherID)
	if err != nil {
		return Teacher{}, err
	}
	if !s.HasUnlocked(teacherID) {
		if _, err = svc.schools.AddUnlockedTeacher(schoolID, teacherID); err != nil {
			return Teacher{}, errors.Wrap(err, "recording unlocked teacher")
		}
	}
	return t, nil
}
