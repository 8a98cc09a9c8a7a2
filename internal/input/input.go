// Package input turns a raw terminal byte stream into per-frame key state.
package input

import (
	"bufio"
	"time"
)

// keyHoldDuration is how long a key is considered "held" after its last press.
const keyHoldDuration = 30 * time.Millisecond

// Input represents the current frame's input state.
type Input struct {
	Quit     bool
	Left     bool // Turn aim left
	Right    bool // Turn aim right
	Up       bool // Raise aim
	Down     bool // Lower aim
	Stronger bool
	Weaker   bool
	Space    bool // Fire
	Volley   bool
	Clear    bool
	Enter    bool
	Number   int // Last digit pressed, -1 if none
	Pressed  []byte
	Closed   bool // The underlying reader is gone
}

// keyState tracks the last time each key was pressed.
type keyState struct {
	quit      time.Time
	left      time.Time
	right     time.Time
	up        time.Time
	down      time.Time
	stronger  time.Time
	weaker    time.Time
	space     time.Time
	volley    time.Time
	clear     time.Time
	enter     time.Time
	number    time.Time
	numberVal int
}

// Stream delivers input bytes via a channel and tracks key state for combinations.
type Stream struct {
	ch     chan byte
	state  keyState
	closed bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the
// stream. The goroutine exits when r returns an error.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{
		ch:    make(chan byte, 128),
		state: keyState{numberVal: -1},
	}
	go func() {
		defer close(s.ch)
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking).
// Keys count as pressed for keyHoldDuration after their last byte, which
// lets held keys and combinations register across frames.
func ReadInput(s *Stream) Input {
	now := time.Now()
	var buf []byte

drain:
	for !s.closed {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	parse(&s.state, buf, now)
	in := build(&s.state, now)
	in.Pressed = buf
	in.Closed = s.closed
	return in
}

// ResetKeyInput forgets every held key, so a key that started the game does
// not also fire.
func ResetKeyInput(s *Stream) {
	s.state = keyState{numberVal: -1}
}

// parse updates key timestamps from raw bytes, decoding arrow key escape
// sequences.
func parse(state *keyState, buf []byte, now time.Time) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]

		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				state.up = now
				i += 2
				continue
			case 'B':
				state.down = now
				i += 2
				continue
			case 'C':
				state.right = now
				i += 2
				continue
			case 'D':
				state.left = now
				i += 2
				continue
			}
		}

		applyByteToState(state, b, now)
	}
}

func build(state *keyState, now time.Time) Input {
	held := func(t time.Time) bool { return now.Sub(t) < keyHoldDuration }

	in := Input{
		Quit:     held(state.quit),
		Left:     held(state.left),
		Right:    held(state.right),
		Up:       held(state.up),
		Down:     held(state.down),
		Stronger: held(state.stronger),
		Weaker:   held(state.weaker),
		Space:    held(state.space),
		Volley:   held(state.volley),
		Clear:    held(state.clear),
		Enter:    held(state.enter),
		Number:   -1,
	}
	if held(state.number) {
		in.Number = state.numberVal
	}
	return in
}

// applyByteToState updates the key state timestamps based on the pressed byte.
func applyByteToState(state *keyState, b byte, now time.Time) {
	switch b {
	case 'q', 'Q', '\x03': // Ctrl+C arrives as a byte in raw mode
		state.quit = now
	case 'a', 'A', 'h', 'H':
		state.left = now
	case 'd', 'D', 'l', 'L':
		state.right = now
	case 'w', 'W', 'k', 'K':
		state.up = now
	case 's', 'S', 'j', 'J':
		state.down = now
	case '+', '=':
		state.stronger = now
	case '-', '_':
		state.weaker = now
	case ' ':
		state.space = now
	case 'v', 'V':
		state.volley = now
	case 'c', 'C':
		state.clear = now
	case '\n', '\r':
		state.enter = now
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		state.number = now
		state.numberVal = int(b - '0')
	}
}
