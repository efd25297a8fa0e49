package vm

import "github.com/pkg/errors"

// DefaultStackCapacity is the number of words the operand stack holds.
const DefaultStackCapacity = 128

// Stack is the operand stack: a fixed-capacity run of 32-bit words.
type Stack struct {
	data      []int32
	capacity  int
	highWater int
}

func NewStack(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	return &Stack{
		data:     make([]int32, 0, capacity),
		capacity: capacity,
	}
}

func (s *Stack) Push(v int32) error {
	if len(s.data) >= s.capacity {
		return ErrStackOverflow
	}
	s.data = append(s.data, v)
	if len(s.data) > s.highWater {
		s.highWater = len(s.data)
	}
	return nil
}

func (s *Stack) Pop() (int32, error) {
	if len(s.data) == 0 {
		return 0, ErrStackUnderflow
	}
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v, nil
}

// Len reports the number of words currently on the stack.
func (s *Stack) Len() int { return len(s.data) }

// HighWater reports the deepest the stack has been since the last Reset.
func (s *Stack) HighWater() int { return s.highWater }

// Values returns a copy of the stack contents, bottom first.
func (s *Stack) Values() []int32 {
	out := make([]int32, len(s.data))
	copy(out, s.data)
	return out
}

func (s *Stack) Reset() {
	s.data = s.data[:0]
	s.highWater = 0
}

func (s *Stack) restore(vals []int32, highWater int) error {
	if len(vals) > s.capacity {
		return errors.Wrapf(ErrStackOverflow, "snapshot holds %d words, capacity is %d", len(vals), s.capacity)
	}
	s.data = append(s.data[:0], vals...)
	s.highWater = max(highWater, len(vals))
	return nil
}
