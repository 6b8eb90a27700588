package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	math := NewMark{StudentID: 1, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 90}
	english := NewMark{StudentID: 1, TestID: 1, Subject: "English", TotalMarks: 100, ObtainedMarks: 70}
	lowerMath := NewMark{StudentID: 1, TestID: 1, Subject: "math", TotalMarks: 100, ObtainedMarks: 50}
	paddedMath := NewMark{StudentID: 1, TestID: 1, Subject: "Math ", TotalMarks: 100, ObtainedMarks: 50}
	otherTest := NewMark{StudentID: 1, TestID: 2, Subject: "Math", TotalMarks: 100, ObtainedMarks: 50}
	otherStudent := NewMark{StudentID: 2, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 50}

	existingMath := Mark{ID: 1, StudentID: 1, TestID: 1, Subject: "Math"}

	tests := []struct {
		name         string
		candidates   []NewMark
		existing     []Mark
		wantAccepted []NewMark
		wantSkipped  []NewMark
	}{
		{name: "empty"},
		{
			name:         "all new",
			candidates:   []NewMark{math, english},
			wantAccepted: []NewMark{math, english},
		},
		{
			name:         "duplicate within batch",
			candidates:   []NewMark{math, math},
			wantAccepted: []NewMark{math},
			wantSkipped:  []NewMark{math},
		},
		{
			name:         "already stored",
			candidates:   []NewMark{english, math},
			existing:     []Mark{existingMath},
			wantAccepted: []NewMark{english},
			wantSkipped:  []NewMark{math},
		},
		{
			name:         "subjects are case and whitespace sensitive",
			candidates:   []NewMark{lowerMath, paddedMath},
			existing:     []Mark{existingMath},
			wantAccepted: []NewMark{lowerMath, paddedMath},
		},
		{
			name:         "key includes test and student",
			candidates:   []NewMark{otherTest, otherStudent},
			existing:     []Mark{existingMath},
			wantAccepted: []NewMark{otherTest, otherStudent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, skipped := Partition(tt.candidates, tt.existing)
			assert.Equal(t, tt.wantAccepted, accepted)
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}
