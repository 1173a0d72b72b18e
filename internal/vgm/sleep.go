package vgm

// sleepAccumulator buffers elapsed samples until the next command needs
// to be placed at the right point in time.
type sleepAccumulator struct {
	pending uint64
	total   uint64
}

func (s *sleepAccumulator) accumulate(n uint32) {
	s.pending += uint64(n)
	s.total += uint64(n)
}

// flush appends as many wait commands as needed to drain pending.
// Each carries at most MaxWait samples.
func (s *sleepAccumulator) flush(buf []byte) []byte {
	for s.pending > 0 {
		chunk := s.pending
		if chunk > MaxWait {
			chunk = MaxWait
		}
		buf = append(buf, OpWait, byte(chunk), byte(chunk>>8))
		s.pending -= chunk
	}
	return buf
}
