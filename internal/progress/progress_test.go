package progress

import (
	"testing"

	"github.com/muonworks/tomography-simulator/internal/logging"
)

func TestReporter_FiresAtCadenceAndCompletion(t *testing.T) {
	r := NewReporter(logging.Noop(), 10, 4)

	var milestones []int
	r.AddListener(func(n int) { milestones = append(milestones, n) })

	for n := 1; n <= 10; n++ {
		r.OnEvent(n)
	}

	want := []int{4, 8, 10}
	if len(milestones) != len(want) {
		t.Fatalf("milestones = %v, want %v", milestones, want)
	}
	for i := range want {
		if milestones[i] != want[i] {
			t.Errorf("milestone %d = %d, want %d", i, milestones[i], want[i])
		}
	}
}

func TestReporter_DefaultCadence(t *testing.T) {
	r := NewReporter(nil, 1000, 0)
	if r.every != 100 {
		t.Errorf("default cadence = %d, want 100", r.every)
	}

	tiny := NewReporter(nil, 3, 0)
	if tiny.every != 1 {
		t.Errorf("tiny batch cadence = %d, want 1", tiny.every)
	}
}

func TestReporter_FinalEventAlwaysReported(t *testing.T) {
	r := NewReporter(logging.Noop(), 7, 3)

	var milestones []int
	r.AddListener(func(n int) { milestones = append(milestones, n) })
	for n := 1; n <= 7; n++ {
		r.OnEvent(n)
	}

	if len(milestones) == 0 || milestones[len(milestones)-1] != 7 {
		t.Errorf("milestones = %v, want final event 7 reported", milestones)
	}
}
