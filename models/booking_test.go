package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeCancellationFee(t *testing.T) {
	scheduled := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)

	booking := Booking{
		FinalPrice:              200,
		ScheduledFor:            scheduled,
		CancellationCutoffHours: 24,
		CancellationFeeType:     FeeTypePercent,
		CancellationFeeAmount:   25,
	}

	t.Run("OutsideWindowIsFree", func(t *testing.T) {
		at := scheduled.Add(-48 * time.Hour)
		assert.False(t, booking.InsideCancellationWindow(at))
		assert.Equal(t, 0.0, booking.ComputeCancellationFee(at))
	})

	t.Run("PercentFeeInsideWindow", func(t *testing.T) {
		at := scheduled.Add(-2 * time.Hour)
		assert.True(t, booking.InsideCancellationWindow(at))
		assert.Equal(t, 50.0, booking.ComputeCancellationFee(at))
	})

	t.Run("FixedFeeInsideWindow", func(t *testing.T) {
		fixed := booking
		fixed.CancellationFeeType = FeeTypeFixed
		fixed.CancellationFeeAmount = 30
		assert.Equal(t, 30.0, fixed.ComputeCancellationFee(scheduled.Add(-time.Hour)))
	})

	t.Run("CutoffBoundaryIsFree", func(t *testing.T) {
		at := scheduled.Add(-24 * time.Hour)
		assert.False(t, booking.InsideCancellationWindow(at))
		assert.Equal(t, 0.0, booking.ComputeCancellationFee(at))
	})

	t.Run("ZeroCutoffIsFreeUntilStart", func(t *testing.T) {
		immediate := booking
		immediate.CancellationCutoffHours = 0
		assert.False(t, immediate.InsideCancellationWindow(scheduled.Add(-time.Minute)))
		assert.True(t, immediate.InsideCancellationWindow(scheduled.Add(time.Minute)))
	})
}

func TestBookingIsTerminal(t *testing.T) {
	for status, terminal := range map[BookingStatus]bool{
		BookingStatusPending:    false,
		BookingStatusConfirmed:  false,
		BookingStatusInProgress: false,
		BookingStatusCompleted:  true,
		BookingStatusCancelled:  true,
	} {
		b := Booking{Status: status}
		assert.Equal(t, terminal, b.IsTerminal(), "status %s", status)
	}
}
