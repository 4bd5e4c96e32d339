package protocol

import "strconv"

var (
	ReplyStored       = []byte("STORED")
	ReplyEnd          = []byte("END")
	ReplyError        = []byte("ERROR")
	ReplyBadDataChunk = []byte("CLIENT_ERROR bad data chunk")
)

// AppendValueHeader appends "VALUE <key> <flag> <length>" to dst.
func AppendValueHeader(dst, key []byte, flag uint32, length int) []byte {
	dst = append(dst, "VALUE "...)
	dst = append(dst, key...)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, uint64(flag), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(length), 10)
	return dst
}

// VersionReply returns "VERSION <version>".
func VersionReply(version string) []byte {
	return append([]byte("VERSION "), version...)
}
