package profile

// ApplicationStatus tracks a teacher candidate through the placement
// pipeline. Transitions happen only through admin action; the ordering below
// also drives the progress indicator on the frontend.
type ApplicationStatus string

const (
	StatusPending              ApplicationStatus = "pending"
	StatusDocumentVerification ApplicationStatus = "document_verification"
	StatusSchoolMatching       ApplicationStatus = "school_matching"
	StatusInterviewScheduled   ApplicationStatus = "interview_scheduled"
	StatusInterviewCompleted   ApplicationStatus = "interview_completed"
	StatusOfferExtended        ApplicationStatus = "offer_extended"
	StatusPlaced               ApplicationStatus = "placed"

	// StatusDeclined is terminal and sits outside the progress ordering.
	StatusDeclined ApplicationStatus = "declined"
)

// Statuses lists the pipeline in progress order, StatusDeclined excluded.
var Statuses = []ApplicationStatus{
	StatusPending,
	StatusDocumentVerification,
	StatusSchoolMatching,
	StatusInterviewScheduled,
	StatusInterviewCompleted,
	StatusOfferExtended,
	StatusPlaced,
}

var statusOrder = map[ApplicationStatus]int{
	StatusPending:              0,
	StatusDocumentVerification: 1,
	StatusSchoolMatching:       2,
	StatusInterviewScheduled:   3,
	StatusInterviewCompleted:   4,
	StatusOfferExtended:        5,
	StatusPlaced:               6,
}

func (s ApplicationStatus) IsValid() bool {
	if s == StatusDeclined {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Order returns the progress index of s, or -1 for StatusDeclined and
// unknown values.
func (s ApplicationStatus) Order() int {
	if ord, ok := statusOrder[s]; ok {
		return ord
	}
	return -1
}

func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusPlaced || s == StatusDeclined
}

// CanTransition reports whether an admin may move a candidate from s to
// `to`: forward-only along the pipeline, declining allowed from any
// non-terminal status, terminal statuses frozen.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	if !to.IsValid() || s.IsTerminal() {
		return false
	}
	if to == StatusDeclined {
		return true
	}
	return to.Order() > s.Order()
}
