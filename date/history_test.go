package date

import "testing"

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := New(2025, 07, 01), "25 Jul 1"
	d2, v2 := New(2024, 07, 01), "24 Jul 1"

	// Test is about appending two values in reverse order and checking that everything is
	// as expected at every step of the way.

	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}

	h.Append(d1, v1)
	if h.Len() != 1 {
		t.Errorf("Append(d1, v1).Len() = %v want 1", h.Len())
	}

	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Errorf("Append(d2, v2).Len() = %v want 2", h.Len())
	}

	if h.days[1] != d1 {
		t.Errorf("history[1].day = %v want %v", h.days[1], d1)
	}
	if h.days[0] != d2 {
		t.Errorf("history[0].day = %v want %v", h.days[0], d2)
	}
	if h.values[1] != v1 {
		t.Errorf("history[1].value = %v want %v", h.values[1], v1)
	}
	if h.values[0] != v2 {
		t.Errorf("history[0].value = %v want %v", h.values[0], v2)
	}

	h.Append(d1, "replaced")
	if h.Len() != 2 {
		t.Errorf("Append on an existing day must replace, Len() = %v", h.Len())
	}
	if v, _ := h.Get(d1); v != "replaced" {
		t.Errorf("Get(d1) = %q want %q", v, "replaced")
	}
}

func TestValueAsOf(t *testing.T) {
	h := new(History[float64])
	h.Append(New(2025, 1, 10), 10)
	h.Append(New(2025, 1, 20), 20)

	testCases := []struct {
		day    Date
		want   float64
		wantOK bool
	}{
		{New(2025, 1, 9), 0, false},
		{New(2025, 1, 10), 10, true},
		{New(2025, 1, 15), 10, true},
		{New(2025, 1, 20), 20, true},
		{New(2025, 3, 1), 20, true},
	}
	for _, tc := range testCases {
		got, ok := h.ValueAsOf(tc.day)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ValueAsOf(%v) = %v, %v want %v, %v", tc.day, got, ok, tc.want, tc.wantOK)
		}
	}

	if _, ok := h.Get(New(2025, 1, 15)); ok {
		t.Error("Get() must not fall back to previous values")
	}
}
