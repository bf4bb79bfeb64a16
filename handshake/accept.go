package handshake

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"seijaku.dev/seijaku/pkg/thunks"
)

// Peer is the listener's view of an initiator after its tag was recognised.
// Peer.Recv decrypts what the initiator's Send produced and vice versa.
type Peer struct {
	Name string
	Time time.Time
	*Session
}

// Accept reads a tag from r and searches keys for the secret and timestamp
// that produced it. Every second in [now-tolerance, now+tolerance] is tried
// for every key, in key-name order. It returns ErrInvalidTag when nothing
// matches.
func Accept(r io.Reader, keys map[string][]byte, tolerance time.Duration, f TagFormat) (*Peer, error) {
	var tag Tag
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, fmt.Errorf("handshake: reading tag: %w", err)
	}
	return Match(tag, keys, tolerance, f)
}

// Match is Accept without the read.
func Match(tag Tag, keys map[string][]byte, tolerance time.Duration, f TagFormat) (*Peer, error) {
	now := thunks.TimeNow().Unix()
	window := int64(tolerance / time.Second)

	names := maps.Keys(keys)
	sort.Strings(names)
	for _, name := range names {
		secret := keys[name]
		if len(secret) == 0 {
			continue
		}
		for ts := now - window; ts <= now+window; ts++ {
			if ComputeTag(secret, ts, f) != tag {
				continue
			}
			sess, err := newSessionFromTag(secret, tag)
			if err != nil {
				return nil, err
			}
			logrus.Infof("handshake: tag %016x matched key %q at %s", tag.Uint64(), name, time.Unix(ts, 0).UTC().Format(time.RFC3339))
			return &Peer{
				Name:    name,
				Time:    time.Unix(ts, 0),
				Session: sess,
			}, nil
		}
	}
	return nil, ErrInvalidTag
}
