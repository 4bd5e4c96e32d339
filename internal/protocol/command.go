package protocol

// Command is one parsed request line.
type Command interface {
	// Name is the lower-case command keyword.
	Name() string
}

// Set is the header line of a storage request. Its data block follows as the
// next frame.
type Set struct {
	Key     []byte
	Flag    uint32
	TTL     uint32
	Length  uint32
	NoReply bool
}

// Get asks for the value stored under Key.
type Get struct {
	Key []byte
}

// Version asks for the server version string.
type Version struct{}

func (Set) Name() string     { return "set" }
func (Get) Name() string     { return "get" }
func (Version) Name() string { return "version" }
