package audio

import "testing"

func testMixer() *Mixer {
	return NewMixer(testGate(), 3.0)
}

func TestMixerSystemOnly(t *testing.T) {
	m := testMixer()

	system := []int16{100, -200, 300, -400}
	mixed, micOut := m.Mix(system, nil, 0)

	if micOut != nil {
		t.Errorf("micOut = %v, want nil without a microphone", micOut)
	}
	for i := range system {
		if mixed[i] != system[i] {
			t.Fatalf("sample %d = %d, want passthrough %d", i, mixed[i], system[i])
		}
	}
	// The mixed buffer must be a copy, not an alias.
	mixed[0] = 0
	if system[0] != 100 {
		t.Error("Mix aliased the system buffer")
	}
}

func TestMixerSumsStereoMic(t *testing.T) {
	m := testMixer()
	m.SetGateEnabled(false)

	system := []int16{100, 200, 300, 400}
	mic := []int16{10, 20, 30, 40}
	mixed, micOut := m.Mix(system, mic, 2)

	want := []int16{110, 220, 330, 440}
	for i := range want {
		if mixed[i] != want[i] {
			t.Errorf("mixed[%d] = %d, want %d", i, mixed[i], want[i])
		}
		if micOut[i] != mic[i] {
			t.Errorf("micOut[%d] = %d, want %d", i, micOut[i], mic[i])
		}
	}
}

func TestMixerUpmixesMonoMic(t *testing.T) {
	m := testMixer()
	m.SetGateEnabled(false)

	system := []int16{0, 0, 0, 0}
	mic := []int16{5, 7}
	mixed, _ := m.Mix(system, mic, 1)

	want := []int16{5, 5, 7, 7}
	for i := range want {
		if mixed[i] != want[i] {
			t.Errorf("mixed[%d] = %d, want %d", i, mixed[i], want[i])
		}
	}
}

func TestMixerAppliesMicGain(t *testing.T) {
	m := testMixer()
	m.SetGateEnabled(false)
	m.SetMicGain(2.0)

	system := []int16{0, 0}
	mic := []int16{100, -100}
	mixed, micOut := m.Mix(system, mic, 2)

	for i, want := range []int16{200, -200} {
		if mixed[i] != want {
			t.Errorf("mixed[%d] = %d, want %d", i, mixed[i], want)
		}
		if micOut[i] != want {
			t.Errorf("micOut[%d] = %d, want %d", i, micOut[i], want)
		}
	}
}

func TestMixerClampsGain(t *testing.T) {
	m := testMixer()

	if got := m.SetMicGain(10.0); got != 3.0 {
		t.Errorf("SetMicGain(10) = %v, want clamp to 3", got)
	}
	if got := m.SetMicGain(-1.0); got != 0.0 {
		t.Errorf("SetMicGain(-1) = %v, want clamp to 0", got)
	}
}

func TestMixerClipsToInt16(t *testing.T) {
	m := testMixer()
	m.SetGateEnabled(false)

	system := []int16{30000, -30000}
	mic := []int16{30000, -30000}
	mixed, _ := m.Mix(system, mic, 2)

	if mixed[0] != 32767 {
		t.Errorf("positive overflow = %d, want 32767", mixed[0])
	}
	if mixed[1] != -32768 {
		t.Errorf("negative overflow = %d, want -32768", mixed[1])
	}
}

func TestMixerSkipsMismatchedMicChunk(t *testing.T) {
	m := testMixer()
	m.SetGateEnabled(false)

	system := []int16{100, 200, 300, 400}
	mic := []int16{50, 50} // stereo chunk shorter than the system chunk
	mixed, micOut := m.Mix(system, mic, 2)

	for i := range system {
		if mixed[i] != system[i] {
			t.Fatalf("mixed[%d] = %d, want unmodified system audio on length mismatch", i, mixed[i])
		}
	}
	// The mic path is still metered even when it cannot be mixed.
	if len(micOut) != len(mic) {
		t.Errorf("micOut length = %d, want %d", len(micOut), len(mic))
	}
}

func TestMixerGateSilencesQuietMic(t *testing.T) {
	m := testMixer()

	system := make([]int16, testFrames)
	quiet := make([]int16, testFrames)
	for i := range quiet {
		quiet[i] = 10
	}

	mixed, _ := m.Mix(system, quiet, 2)
	for i, s := range mixed {
		if s != 0 {
			t.Fatalf("sample %d = %d, gated mic leaked into the mix", i, s)
		}
	}
}
