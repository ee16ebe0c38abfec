package alac

import "testing"

func TestParseConfigRejectsShortCookie(t *testing.T) {
	if _, err := ParseConfig(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short cookie")
	}
}

func TestParseConfigFields(t *testing.T) {
	cookie := make([]byte, 24)
	cookie[3] = 4 // frameLength = 4 (low byte)
	cookie[5] = 16
	cookie[6] = 40 // pb
	cookie[7] = 10 // mb
	cookie[8] = 14 // kb
	cookie[9] = 2  // numChannels
	cookie[23] = 0x44
	cookie[22] = 0xac // sampleRate low 16 bits = 0xac44 = 44100

	cfg, err := ParseConfig(cookie)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	if cfg.FrameLength != 4 {
		t.Errorf("FrameLength = %d, want 4", cfg.FrameLength)
	}
	if cfg.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", cfg.BitDepth)
	}
	if cfg.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", cfg.NumChannels)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
}

// buildVerbatimSCEPacket builds a single-channel ALAC packet whose channel
// is stored verbatim (no prediction, no Rice coding), the simplest path
// through the element loop.
func buildVerbatimSCEPacket(samples []int32, bits int) []byte {
	w := &bitWriter{}

	w.writeBits(elemSCE, 3)
	w.writeBits(0, 4) // element instance tag

	w.writeBits(0, 1) // partial frame flag
	w.writeBits(0, 2) // shift
	w.writeBits(1, 1) // verbatim flag

	for _, s := range samples {
		w.writeBits(uint32(s)&(1<<uint(bits)-1), bits)
	}

	w.align()
	w.writeBits(elemEND, 3)

	return w.bytes()
}

func TestDecodePacketVerbatimMono(t *testing.T) {
	cfg := Config{FrameLength: 4, BitDepth: 16, NumChannels: 1, Mb: 40, Kb: 14}
	dec := NewDecoder(cfg)

	want := []int32{100, -100, 32767, -32768}
	packet := buildVerbatimSCEPacket(want, 16)

	got, err := dec.DecodePacket(packet)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}

	for i, w16 := range want {
		gotSample := got[i] >> 16 // undo the left-justification to compare
		if int32(int16(gotSample)) != w16 {
			t.Errorf("sample %d = %d, want %d", i, int16(gotSample), w16)
		}
	}
}

func TestUnpredictZeroOrderIsIdentity(t *testing.T) {
	residual := []int32{5, -3, 7, 0}
	out := unpredict(residual, nil, 0, 16)

	for i, r := range residual {
		if out[i] != r {
			t.Errorf("out[%d] = %d, want %d", i, out[i], r)
		}
	}
}

func TestUnmixStereoRecoversLeftRightAtZeroRes(t *testing.T) {
	mid := []int32{10, 20}
	side := []int32{2, -4}

	left, right := unmixStereo(mid, side, 2, 0)

	for i := range mid {
		if left[i] != mid[i]+side[i] {
			t.Errorf("left[%d] = %d, want %d", i, left[i], mid[i]+side[i])
		}
		if right[i] != mid[i] {
			t.Errorf("right[%d] = %d, want %d", i, right[i], mid[i])
		}
	}
}

func TestRiceRoundTrip(t *testing.T) {
	cfg := defaultRiceConfig()
	values := []int{0, 1, -1, 5, -5, 100, -100, 0, 0, 3}

	w := &bitWriter{}
	enc := newRiceState(cfg)
	for _, v := range values {
		enc.encodeResidual(w, v, 16)
	}

	r := newBitReader(w.bytes())
	dec := newRiceState(cfg)
	for i, want := range values {
		got := dec.decodeResidual(r, 16)
		if got != want {
			t.Errorf("value %d = %d, want %d", i, got, want)
		}
	}
}
