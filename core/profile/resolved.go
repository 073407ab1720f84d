package profile

import "encoding/json"

// Kind discriminates the three mutually exclusive profile types a resolved
// session can carry.
type Kind int8

const (
	KindUnknown Kind = iota
	KindTeacher
	KindAdmin
	KindSchool
)

func (k Kind) String() string {
	switch k {
	case KindTeacher:
		return "teacher"
	case KindAdmin:
		return "admin"
	case KindSchool:
		return "school"
	default:
		return "unknown"
	}
}

// Resolved is the profile attached to an authenticated identity. It is a sum
// over {Teacher, AdminUser, SchoolAccount}: the unexported fields and the
// three constructors make "exactly one populated" structural rather than a
// convention.
type Resolved struct {
	kind    Kind
	teacher *Teacher
	admin   *AdminUser
	school  *SchoolAccount
}

func ResolvedTeacher(t Teacher) Resolved {
	return Resolved{kind: KindTeacher, teacher: &t}
}

func ResolvedAdmin(a AdminUser) Resolved {
	return Resolved{kind: KindAdmin, admin: &a}
}

func ResolvedSchool(s SchoolAccount) Resolved {
	return Resolved{kind: KindSchool, school: &s}
}

func (r Resolved) Kind() Kind { return r.kind }

func (r Resolved) Teacher() (Teacher, bool) {
	if r.kind == KindTeacher {
		return *r.teacher, true
	}
	return Teacher{}, false
}

func (r Resolved) Admin() (AdminUser, bool) {
	if r.kind == KindAdmin {
		return *r.admin, true
	}
	return AdminUser{}, false
}

func (r Resolved) School() (SchoolAccount, bool) {
	if r.kind == KindSchool {
		return *r.school, true
	}
	return SchoolAccount{}, false
}

// MarshalJSON renders the who-am-I wire format: an object with at most one
// of the "teacher", "admin" or "school" keys.
func (r Resolved) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, 1)
	switch r.kind {
	case KindTeacher:
		body["teacher"] = r.teacher
	case KindAdmin:
		body["admin"] = r.admin
	case KindSchool:
		body["school"] = r.school
	}
	return json.Marshal(body)
}
