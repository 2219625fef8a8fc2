package ccproto

// Flags is the four-bit refresh bitmask {Sessions, Windows, Panes,
// Clients} described in spec.md §4.5/§4.9/GLOSSARY. The control-mode
// parser sets bits as it recognizes notifications; the refresh
// coordinator in internal/reload drains them in precedence order.
type Flags uint8

const (
	FlagSessions Flags = 1 << iota
	FlagWindows
	FlagPanes
	FlagClients
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	s := ""
	add := func(bit Flags, name string) {
		if f.Has(bit) {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(FlagSessions, "Sessions")
	add(FlagWindows, "Windows")
	add(FlagPanes, "Panes")
	add(FlagClients, "Clients")
	return s
}
