package core

// ResetTiming sets t to (distributor=0, phase=CP1, acquisition=true).
func ResetTiming(t *TimingState) {
	t.Distributor = 0
	t.Phase = CP1
	t.Acquisition = true
}

// AdvanceTiming performs the strictly deterministic three-state rotation
// on phase: CP1->CP2->CP3->CP1. On the CP3->CP1 transition the distributor
// increments modulo 16; when it wraps to 0, acquisition toggles.
//
// Consumers must read the (distributor, phase) coordinate before calling
// AdvanceTiming; exactly one coordinate is current between any two calls.
func AdvanceTiming(t *TimingState) {
	switch t.Phase {
	case CP1:
		t.Phase = CP2
	case CP2:
		t.Phase = CP3
	case CP3:
		t.Phase = CP1
		t.Distributor = (t.Distributor + 1) % 16
		if t.Distributor == 0 {
			t.Acquisition = !t.Acquisition
		}
	default:
		t.Phase = CP1
	}
}
