package app

import (
	"testing"
	"time"
)

var slots = []string{"08:00", "14:00", "20:00"}

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestComputeWindow_BetweenSlots(t *testing.T) {
	start, end, err := ComputeWindow(at(15, 0), slots)
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(at(14, 0)) {
		t.Errorf("end = %v, want 14:00", end)
	}
	if !start.Equal(at(8, 0)) {
		t.Errorf("start = %v, want 08:00", start)
	}
}

func TestComputeWindow_AfterFirstSlot(t *testing.T) {
	start, end, err := ComputeWindow(at(9, 0), slots)
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(at(8, 0)) {
		t.Errorf("end = %v, want 08:00", end)
	}
	wantStart := at(20, 0).AddDate(0, 0, -1)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want previous day 20:00", start)
	}
}

func TestComputeWindow_BeforeAnySlot(t *testing.T) {
	start, end, err := ComputeWindow(at(7, 0), slots)
	if err != nil {
		t.Fatal(err)
	}
	yesterdayLast := at(20, 0).AddDate(0, 0, -1)
	if !end.Equal(yesterdayLast) {
		t.Errorf("end = %v, want previous day 20:00", end)
	}
	if !start.Equal(yesterdayLast) {
		t.Errorf("start = %v, want previous day 20:00", start)
	}
}

func TestComputeWindow_ExactlyOnSlot(t *testing.T) {
	// A slot at now counts as the window end.
	start, end, err := ComputeWindow(at(14, 0), slots)
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(at(14, 0)) {
		t.Errorf("end = %v, want 14:00", end)
	}
	if !start.Equal(at(8, 0)) {
		t.Errorf("start = %v, want 08:00", start)
	}
}

func TestComputeWindow_UnsortedSlots(t *testing.T) {
	start, end, err := ComputeWindow(at(15, 0), []string{"20:00", "08:00", "14:00"})
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(at(14, 0)) || !start.Equal(at(8, 0)) {
		t.Errorf("unsorted slots mishandled: start %v end %v", start, end)
	}
}

func TestComputeWindow_Errors(t *testing.T) {
	if _, _, err := ComputeWindow(at(12, 0), nil); err == nil {
		t.Error("expected error for empty slot list")
	}
	if _, _, err := ComputeWindow(at(12, 0), []string{"25:99"}); err == nil {
		t.Error("expected error for invalid slot")
	}
}
