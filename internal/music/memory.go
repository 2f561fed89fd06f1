package music

var _ Reference = (*MemoryReference)(nil)

// MemoryReference is a Reference to PCM data held in memory.
// The channel data is never modified, so many references may share it.
type MemoryReference struct {
	control

	left  []byte
	right []byte
}

// NewMemoryReference returns a stopped reference to the channel data.
func NewMemoryReference(left []byte, right []byte) (*MemoryReference, error) {
	if len(left) != len(right) {
		return nil, ErrChannelMismatch
	}

	reference := &MemoryReference{
		left:  left,
		right: right,
	}
	reference.init(int64(len(left)))
	return reference, nil
}

// SkipBytes implements Reference.
func (r *MemoryReference) SkipBytes(num int64) error {
	if num < 0 {
		return ErrNegativeSkip
	}

	r.mutex.Lock()
	if r.disposed {
		r.mutex.Unlock()
		return ErrDisposed
	}

	if num == 0 {
		r.mutex.Unlock()
		return nil
	}

	if r.available() == 0 {
		r.mutex.Unlock()
		return ErrEndOfStream
	}

	stopped, _ := r.advance(num)
	r.unlockAndNotify(stopped)
	return nil
}

// NextTwoBytes implements Reference.
func (r *MemoryReference) NextTwoBytes(data *[2]int, bigEndian bool) error {
	r.mutex.Lock()
	if r.disposed {
		r.mutex.Unlock()
		return ErrDisposed
	}

	if r.available() == 0 {
		r.mutex.Unlock()
		data[0], data[1] = 0, 0
		return ErrEndOfStream
	}

	// A trailing odd byte is read as if followed by zero
	var left, right [2]byte
	n := copy(left[:], r.left[r.position:])
	copy(right[:], r.right[r.position:])

	data[0] = DecodeSample(left, bigEndian)
	data[1] = DecodeSample(right, bigEndian)

	stopped, _ := r.advance(int64(n))
	r.unlockAndNotify(stopped)
	return nil
}

// Dispose implements Reference.
func (r *MemoryReference) Dispose() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.dispose(); err != nil {
		return err
	}

	r.left = nil
	r.right = nil
	return nil
}
