package imcol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ironsheep/imcol/internal/imaging"
)

// Option configures an image.
type Option func(*fileSet)

// WithDecoder sets the decoder used on cache misses. The default is
// imaging.FileDecoder.
func WithDecoder(d Decoder) Option {
	return func(s *fileSet) { s.decoder = d }
}

// WithLogger sets the logger for decode and unload events. The default
// discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *fileSet) { s.log = &l }
}

// fileSet is the declared channel to files mapping shared by every layout.
// Its zero value is usable; it is what unmarshalling starts from.
type fileSet struct {
	files   map[string][]string
	decoder Decoder
	log     *zerolog.Logger
}

func newFileSet(files map[string][]string, opts []Option) fileSet {
	s := fileSet{files: make(map[string][]string, len(files))}
	for ch, paths := range files {
		s.files[ch] = clonePaths(paths)
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func singleFiles(files map[string]string) map[string][]string {
	out := make(map[string][]string, len(files))
	for ch, p := range files {
		out[ch] = []string{p}
	}
	return out
}

// HasChannel reports whether the channel is declared.
func (s *fileSet) HasChannel(channel string) bool {
	_, ok := s.files[channel]
	return ok
}

// Channels returns the declared channel names, sorted.
func (s *fileSet) Channels() []string {
	names := make([]string, 0, len(s.files))
	for ch := range s.files {
		names = append(names, ch)
	}
	sort.Strings(names)
	return names
}

// State returns the declared mapping, sorted by channel.
func (s *fileSet) State() []ChannelFiles {
	state := make([]ChannelFiles, 0, len(s.files))
	for _, ch := range s.Channels() {
		state = append(state, ChannelFiles{Channel: ch, Paths: clonePaths(s.files[ch])})
	}
	return state
}

// setState validates state and replaces the declared mapping. single requires
// exactly one path per channel.
func (s *fileSet) setState(state []ChannelFiles, single bool) error {
	files := make(map[string][]string, len(state))
	for _, cf := range state {
		if _, dup := files[cf.Channel]; dup {
			return fmt.Errorf("%w: channel %q listed twice", ErrInvalidState, cf.Channel)
		}
		if single && len(cf.Paths) != 1 {
			return fmt.Errorf("%w: channel %q has %d paths, want 1", ErrInvalidState, cf.Channel, len(cf.Paths))
		}
		files[cf.Channel] = clonePaths(cf.Paths)
	}
	s.files = files
	return nil
}

func (s *fileSet) paths(channel string) ([]string, error) {
	paths, ok := s.files[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return paths, nil
}

func (s *fileSet) dec() Decoder {
	if s.decoder == nil {
		return imaging.FileDecoder{}
	}
	return s.decoder
}

func (s *fileSet) logger() *zerolog.Logger {
	if s.log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.log
}

// format renders the mapping the way fmt prints maps, with single paths
// unwrapped when single is set.
func (s *fileSet) format(single bool) string {
	var b strings.Builder
	b.WriteString("Image( map[")
	for i, ch := range s.Channels() {
		if i > 0 {
			b.WriteByte(' ')
		}
		paths := s.files[ch]
		if single && len(paths) == 1 {
			fmt.Fprintf(&b, "%s:%s", ch, paths[0])
		} else {
			fmt.Fprintf(&b, "%s:%v", ch, paths)
		}
	}
	b.WriteString("] )")
	return b.String()
}

func (s *fileSet) marshalJSON() ([]byte, error) {
	return json.Marshal(s.State())
}

func decodeJSONState(data []byte) ([]ChannelFiles, error) {
	var state []ChannelFiles
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return state, nil
}

// clonePaths copies a path list so callers cannot mutate the declared mapping.
func clonePaths(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}
