package settlement

import (
	"testing"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectStatus(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -10)
	earlier := now.AddDate(0, -1, 0)

	tests := []struct {
		name       string
		in         StatusInput
		wantStatus models.InvoiceStatus
		wantPaidAt *time.Time
	}{
		{
			name:       "fully paid",
			in:         StatusInput{Total: 121000, Paid: 121000, DueDate: future, Previous: models.InvoiceStatusSent},
			wantStatus: models.InvoiceStatusPaid,
			wantPaidAt: &now,
		},
		{
			name:       "over-paid is still paid",
			in:         StatusInput{Total: 100000, Paid: 150000, DueDate: future, Previous: models.InvoiceStatusPartiallyPaid},
			wantStatus: models.InvoiceStatusPaid,
			wantPaidAt: &now,
		},
		{
			name:       "already paid keeps original paidAt",
			in:         StatusInput{Total: 100000, Paid: 130000, DueDate: future, Previous: models.InvoiceStatusPaid, PreviousPaidAt: &earlier},
			wantStatus: models.InvoiceStatusPaid,
			wantPaidAt: &earlier,
		},
		{
			name:       "partial payment before due date",
			in:         StatusInput{Total: 100000, Paid: 1, DueDate: future, Previous: models.InvoiceStatusSent},
			wantStatus: models.InvoiceStatusPartiallyPaid,
		},
		{
			name:       "partial payment wins over overdue",
			in:         StatusInput{Total: 100000, Paid: 50000, DueDate: past, Previous: models.InvoiceStatusOverdue},
			wantStatus: models.InvoiceStatusPartiallyPaid,
		},
		{
			name:       "unpaid past due date",
			in:         StatusInput{Total: 100000, Paid: 0, DueDate: past, Previous: models.InvoiceStatusPaid, PreviousPaidAt: &earlier},
			wantStatus: models.InvoiceStatusOverdue,
		},
		{
			name:       "unpaid due exactly now is not overdue",
			in:         StatusInput{Total: 100000, Paid: 0, DueDate: now, Previous: models.InvoiceStatusPartiallyPaid},
			wantStatus: models.InvoiceStatusSent,
		},
		{
			name:       "viewed sub-state is not restored",
			in:         StatusInput{Total: 100000, Paid: 0, DueDate: future, Previous: models.InvoiceStatusViewed},
			wantStatus: models.InvoiceStatusSent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			got := ProjectStatus(tt.in)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantPaidAt == nil {
				assert.Nil(t, got.PaidAt)
				return
			}
			require.NotNil(t, got.PaidAt)
			assert.True(t, tt.wantPaidAt.Equal(*got.PaidAt))
		})
	}
}

func TestProjectStatusDoesNotAliasPreviousPaidAt(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	earlier := now.AddDate(0, 0, -3)
	in := StatusInput{Total: 10, Paid: 10, DueDate: now, Previous: models.InvoiceStatusPaid, PreviousPaidAt: &earlier, Now: now}

	got := ProjectStatus(in)
	require.NotNil(t, got.PaidAt)
	*got.PaidAt = now.Add(time.Hour)

	assert.True(t, earlier.Equal(*in.PreviousPaidAt))
}
