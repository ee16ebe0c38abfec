package alac

// riceConfig holds the adaptive Golomb-Rice parameters carried in an ALAC
// magic cookie: the modifier and bound that drive the running k estimate,
// and the per-read-size limit above which a value escapes to a raw literal.
type riceConfig struct {
	historyMult int
	initialHist int
	kModifier   int
	limit       int
}

func defaultRiceConfig() riceConfig {
	return riceConfig{
		historyMult: 40,
		initialHist: 10,
		kModifier:   14,
		limit:       9,
	}
}

// riceState tracks the running history used to re-estimate k between
// consecutive residuals, mirroring the codec's block-adaptive coder.
type riceState struct {
	cfg     riceConfig
	history int
}

func newRiceState(cfg riceConfig) *riceState {
	return &riceState{cfg: cfg, history: cfg.initialHist * cfg.historyMult}
}

// log2Floor returns floor(log2(v)) for v > 0, and 0 for v == 0.
func log2Floor(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}

	return n
}

// decodeScalar reads one Rice-coded value: a unary prefix followed by a
// k-bit remainder, or (when the unary prefix exceeds limit) an escape to a
// raw readBits-wide literal.
func decodeScalar(r *bitReader, k, limit, readBits int) int {
	prefix := r.unaryZeros()

	if prefix > limit {
		return int(r.readBits(readBits))
	}

	if k == 0 {
		return prefix
	}

	remainder := r.readBits(k)

	return prefix<<uint(k) + int(remainder)
}

// decodeResidual decodes the next zigzag-coded residual and folds it back
// into a signed value, updating k's running history in the process.
func (s *riceState) decodeResidual(r *bitReader, readBits int) int {
	k := s.currentK()

	raw := decodeScalar(r, k, s.cfg.limit, readBits)

	signed := (raw >> 1) ^ -(raw & 1)

	s.update(raw)

	return signed
}

func (s *riceState) currentK() int {
	k := log2Floor(s.history/s.cfg.historyMult + 3)
	if k > s.cfg.kModifier {
		k = s.cfg.kModifier
	}
	if k == 0 {
		k = 1
	}

	return k
}

func (s *riceState) update(raw int) {
	mult := s.cfg.historyMult
	s.history += raw*mult - (s.history*mult)>>9

	if s.history > 0xFFFF {
		s.history = 0xFFFF
	}
}

// encodeScalar and riceState.encodeResidual are the write-side counterparts,
// used only by tests to build synthetic packets that the decoder can then
// round-trip.
func encodeScalar(w *bitWriter, v, k, limit, readBits int) {
	q := v >> uint(k)

	if q > limit {
		w.writeUnary(limit + 1)
		w.writeBits(uint32(v), readBits)
		return
	}

	w.writeUnary(q)
	if k > 0 {
		w.writeBits(uint32(v)&(1<<uint(k)-1), k)
	}
}

func (s *riceState) encodeResidual(w *bitWriter, signed, readBits int) {
	k := s.currentK()

	var raw int
	if signed < 0 {
		raw = -2*signed - 1
	} else {
		raw = 2 * signed
	}

	encodeScalar(w, raw, k, s.cfg.limit, readBits)

	s.update(raw)
}
