// Package handshake derives the per-session keys of a relay connection.
//
// The initiator sends an 8-byte tag in the clear, the big-endian CRC-64 of the
// shared secret followed by the current Unix time. Both ends then XOR the
// secret with the tag to get the mangled key, and seed one keystream per
// direction from it. There is no reply: if the two clocks disagree by more
// than the listener's tolerance, the listener picks the wrong key and the
// stream silently decrypts to garbage.
package handshake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/checksum"
	"seijaku.dev/seijaku/common"
	"seijaku.dev/seijaku/keystream"
	"seijaku.dev/seijaku/pkg/thunks"
)

// Errors returned by the handshake.
var (
	ErrShortWrite    = errors.New("handshake: short tag write")
	ErrEmptySecret   = errors.New("handshake: empty secret")
	ErrInvalidTag    = errors.New("handshake: tag does not match any key")
	ErrUnknownFormat = errors.New("handshake: unknown tag format")
)

// TagFormat selects how the timestamp is appended to the secret before
// checksumming.
type TagFormat int

// Known values of TagFormat
const (
	// TagBinary appends the time as an 8-byte big-endian integer.
	TagBinary TagFormat = iota
	// TagDecimal appends the time as ASCII decimal digits.
	TagDecimal
)

func (f TagFormat) String() string {
	switch f {
	case TagBinary:
		return "binary"
	case TagDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("TagFormat(%d)", int(f))
	}
}

// ParseTagFormat converts "binary" or "decimal" into a TagFormat.
func ParseTagFormat(s string) (TagFormat, error) {
	switch s {
	case "binary":
		return TagBinary, nil
	case "decimal":
		return TagDecimal, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Tag is the session tag as sent on the wire.
type Tag [common.TagSize]byte

// Uint64 returns the tag as an integer.
func (t Tag) Uint64() uint64 {
	return binary.BigEndian.Uint64(t[:])
}

// ComputeTag returns the tag for secret at the given Unix time.
func ComputeTag(secret []byte, unix int64, f TagFormat) Tag {
	h := checksum.New()
	h.Write(secret)
	switch f {
	case TagDecimal:
		h.Write(strconv.AppendInt(nil, unix, 10))
	default:
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(unix))
		h.Write(ts[:])
	}
	var t Tag
	h.Sum(t[:0])
	return t
}

// MangleKey returns secret with each byte XOR'd with tag[i mod 8].
func MangleKey(secret []byte, tag Tag) []byte {
	out := make([]byte, len(secret))
	for i, b := range secret {
		out[i] = b ^ tag[i%len(tag)]
	}
	return out
}

// Session holds the derived per-session material. Send and Recv are
// independent and must each be advanced by exactly one goroutine.
type Session struct {
	Tag  Tag
	Key  []byte
	Send *keystream.State
	Recv *keystream.State
}

// NewSession derives the session for secret at the given Unix time. It is a
// pure function of its inputs.
func NewSession(secret []byte, unix int64, f TagFormat) (*Session, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return newSessionFromTag(secret, ComputeTag(secret, unix, f))
}

func newSessionFromTag(secret []byte, tag Tag) (*Session, error) {
	key := MangleKey(secret, tag)
	send, err := keystream.New(key)
	if err != nil {
		return nil, err
	}
	recv, err := keystream.New(key)
	if err != nil {
		return nil, err
	}
	return &Session{
		Tag:  tag,
		Key:  key,
		Send: send,
		Recv: recv,
	}, nil
}

// Initiate computes a tag for the current time, writes it to w and returns
// the session. The tag is the only thing ever sent unencrypted.
func Initiate(w io.Writer, secret []byte, f TagFormat) (*Session, error) {
	now := thunks.TimeNow().Unix()
	sess, err := NewSession(secret, now, f)
	if err != nil {
		return nil, err
	}
	n, err := w.Write(sess.Tag[:])
	if err != nil {
		return nil, fmt.Errorf("handshake: sending tag: %w", err)
	}
	if n != len(sess.Tag) {
		return nil, ErrShortWrite
	}
	logrus.Debugf("handshake: sent tag %016x for time %d (%s)", sess.Tag.Uint64(), now, f)
	return sess, nil
}
