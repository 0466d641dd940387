package relation

import (
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/google/uuid"
)

// --- Scheme Tests ---

func TestScheme_Keys(t *testing.T) {
	s := NewScheme("/relation", "user")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"forward", s.Forward("follows", "u1", "e1"), "/relation/from/user/follows/u1/e1"},
		{"forward prefix", s.ForwardPrefix("follows", "u1"), "/relation/from/user/follows/u1/"},
		{"lookup", s.Lookup("follows", "u1", "t1"), "/relation/from_to/user/follows/u1/t1"},
		{"count", s.Count("follows", "u1"), "/relation/count/user/follows/u1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestScheme_TrimsRootSeparator(t *testing.T) {
	a := NewScheme("/rel/", "user").Count("follows", "u1")
	b := NewScheme("/rel", "user").Count("follows", "u1")
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
}

func TestScheme_PrefixIsolatesNodes(t *testing.T) {
	s := NewScheme("/relation", "user")
	// u1's prefix must not match the keys of u10.
	other := s.Forward("follows", "u10", "e1")
	prefix := s.ForwardPrefix("follows", "u1")
	if len(other) >= len(prefix) && other[:len(prefix)] == prefix {
		t.Errorf("prefix %q matches %q", prefix, other)
	}
}

func TestParseLookupKey(t *testing.T) {
	s := NewScheme("/relation", "user")

	tests := []struct {
		name   string
		key    string
		want   LookupKey
		wantOK bool
	}{
		{
			name:   "lookup key",
			key:    s.Lookup("follows", "u1", "t1"),
			want:   LookupKey{Model: "user", Attr: "follows", From: "u1", To: "t1"},
			wantOK: true,
		},
		{name: "forward key", key: s.Forward("follows", "u1", "e1")},
		{name: "count key", key: s.Count("follows", "u1")},
		{name: "other root", key: "/other/from_to/user/follows/u1/t1"},
		{name: "too short", key: "/relation/from_to/user/follows/u1"},
		{name: "too long", key: "/relation/from_to/user/follows/u1/t1/x"},
		{name: "empty segment", key: "/relation/from_to/user//u1/t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLookupKey("/relation", tt.key)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateSegments(t *testing.T) {
	if err := validateSegments("user", "follows", "u1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "a/b", "/"} {
		if err := validateSegments("ok", bad); !errors.Is(err, ErrInvalidSegment) {
			t.Errorf("validateSegments(%q): expected ErrInvalidSegment, got %v", bad, err)
		}
	}
}

// --- Config Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Root != "/relation" {
		t.Errorf("expected Root '/relation', got %q", cfg.Root)
	}
	if cfg.Codec != JSON {
		t.Errorf("expected JSON codec, got %s", cfg.Codec.Name())
	}
	if cfg.LockStripes != 32 {
		t.Errorf("expected LockStripes 32, got %d", cfg.LockStripes)
	}
	if cfg.NewID == nil || cfg.Logger == nil {
		t.Error("expected NewID and Logger to be set")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Config
		stripes int
	}{
		{"zero value", Config{}, 32},
		{"negative stripes", Config{LockStripes: -1}, 32},
		{"too many stripes", Config{LockStripes: 1000}, 256},
		{"kept", Config{LockStripes: 8}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.validate()
			if cfg.Root != "/relation" {
				t.Errorf("Root = %q", cfg.Root)
			}
			if cfg.Codec == nil || cfg.NewID == nil || cfg.Logger == nil {
				t.Error("expected defaults to be filled")
			}
			if cfg.LockStripes != tt.stripes {
				t.Errorf("LockStripes = %d, want %d", cfg.LockStripes, tt.stripes)
			}
		})
	}
}

func TestConfig_ValidateKeepsOverrides(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	cfg := Config{Root: "/x", Codec: Msgpack, Logger: logger}
	cfg.validate()
	if cfg.Root != "/x" || cfg.Codec != Msgpack || cfg.Logger != logger {
		t.Errorf("overrides lost: %+v", cfg)
	}
}

func TestNewUUIDv7_Ordered(t *testing.T) {
	var ids []string
	for i := 0; i < 100; i++ {
		id, err := newUUIDv7()
		if err != nil {
			t.Fatalf("newUUIDv7: %v", err)
		}
		u, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("Parse(%q): %v", id, err)
		}
		if u.Version() != 7 {
			t.Errorf("version = %d, want 7", u.Version())
		}
		ids = append(ids, id)
	}
	if !slices.IsSorted(ids) {
		t.Error("ids do not sort in creation order")
	}
	if len(slices.Compact(slices.Clone(ids))) != len(ids) {
		t.Error("duplicate ids")
	}
}

// --- Codec Tests ---

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"msgpack", Msgpack, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		got, err := CodecByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("CodecByName(%q) error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("CodecByName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCodec_EdgeRoundTrip(t *testing.T) {
	edge := Edge{ID: "e1", From: "u1", To: "t1", ToType: "tag", Count: 3}
	for _, c := range []Codec{JSON, Msgpack} {
		data, err := c.Marshal(edge)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", c.Name(), err)
		}
		var got Edge
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s: Unmarshal: %v", c.Name(), err)
		}
		if got != edge {
			t.Errorf("%s: got %+v, want %+v", c.Name(), got, edge)
		}
	}

	data, _ := JSON.Marshal(edge)
	if string(data) != `{"id":"e1","from":"u1","to":"t1","toType":"tag","count":3}` {
		t.Errorf("unexpected JSON layout: %s", data)
	}
}

// --- Error Tests ---

func TestErrors_Is(t *testing.T) {
	cause := errors.New("cause")
	undo := errors.New("undo")

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"exists", &ExistsError{Edge: Edge{ID: "e1"}}, ErrAlreadyExists},
		{"inconsistent", &InconsistentError{From: "user#u1", To: "tag#t1", FromHas: true}, ErrInconsistent},
		{"compensation", &CompensationError{Op: "put", Cause: cause, Compensation: undo}, ErrCompensationFailed},
		{"compensation cause", &CompensationError{Op: "put", Cause: cause, Compensation: undo}, cause},
		{"compensation undo", &CompensationError{Op: "put", Cause: cause, Compensation: undo}, undo},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.target) {
			t.Errorf("%s: errors.Is(%v, %v) = false", tt.name, tt.err, tt.target)
		}
	}
}

func TestCompensationError_Message(t *testing.T) {
	err := &CompensationError{
		Op:           "del",
		State:        StateToOnly,
		Cause:        errors.New("b failed"),
		Compensation: errors.New("a failed"),
	}
	want := "lattice: compensation failed: del left pair to_only: cause: b failed; compensation: a failed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
