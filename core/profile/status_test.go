package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationStatus_IsValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.IsValid(), s)
	}
	assert.True(t, StatusDeclined.IsValid())
	assert.False(t, ApplicationStatus("on_hold").IsValid())
	assert.False(t, ApplicationStatus("").IsValid())
}

func TestApplicationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ApplicationStatus
		to   ApplicationStatus
		want bool
	}{
		{"forward single step", StatusPending, StatusDocumentVerification, true},
		{"forward skipping steps", StatusPending, StatusOfferExtended, true},
		{"self", StatusSchoolMatching, StatusSchoolMatching, false},
		{"backward", StatusInterviewCompleted, StatusSchoolMatching, false},
		{"decline from anywhere", StatusInterviewScheduled, StatusDeclined, true},
		{"decline from pending", StatusPending, StatusDeclined, true},
		{"out of placed", StatusPlaced, StatusDeclined, false},
		{"out of declined", StatusDeclined, StatusPending, false},
		{"into placed", StatusOfferExtended, StatusPlaced, true},
		{"unknown target", StatusPending, ApplicationStatus("on_hold"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestApplicationStatus_Order(t *testing.T) {
	for i, s := range Statuses {
		assert.Equal(t, i, s.Order(), s)
	}
	assert.Equal(t, -1, StatusDeclined.Order())
	assert.Equal(t, -1, ApplicationStatus("on_hold").Order())
}
