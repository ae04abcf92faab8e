package mention

import (
	"reflect"
	"testing"
)

var directory = []Candidate{
	{ID: 1, Username: "L2006", FullName: "Linh", IsActive: true},
	{ID: 2, Username: "me", FullName: "Myself", IsActive: true},
	{ID: 3, Username: "ghost", FullName: "Gone", IsActive: false},
	{ID: 4, Username: "anna", FullName: "bob", IsActive: true},
	{ID: 5, Username: "bob", FullName: "Robert", IsActive: true},
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"no tokens", "hello world", nil},
		{"single", "Hello @L2006 how are you?", []string{"L2006"}},
		{"stops at punctuation", "@anna, @bob!", []string{"anna", "bob"}},
		{"duplicates kept", "@a @b @a", []string{"a", "b", "a"}},
		{"bare at sign", "mail me @ home", nil},
		{"underscore and digits", "@nguyen_van1", []string{"nguyen_van1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Mentions
	}{
		{"empty content", "", nil},
		{"username", "Hello @L2006 how are you?", Mentions{1}},
		{"trailing text ignored", "@L2006 test", Mentions{1}},
		{"case insensitive", "@l2006", Mentions{1}},
		{"full name", "@myself", Mentions{2}},
		{"unknown token dropped", "@nobody", nil},
		{"inactive user skipped", "@ghost @Gone", nil},
		{"username beats another user's full name", "@bob", Mentions{5}},
		{"duplicates collapse", "@L2006 @linh @l2006", Mentions{1}},
		{"first resolution order", "@bob @me @L2006 @me", Mentions{5, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.content, directory)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestResolveOnlyReturnsActiveMatches(t *testing.T) {
	content := "@L2006 @me @ghost @anna @bob @Robert @Gone @zzz"
	got := Resolve(content, directory)

	active := map[int64]bool{}
	for _, c := range directory {
		if c.IsActive {
			active[c.ID] = true
		}
	}
	seen := map[int64]bool{}
	for _, id := range got {
		if !active[id] {
			t.Errorf("resolved inactive or unknown id %d", id)
		}
		if seen[id] {
			t.Errorf("id %d resolved twice", id)
		}
		seen[id] = true
	}
}

func TestMatchReportsUnmatched(t *testing.T) {
	ids, unmatched := Match("@L2006 @nobody @ghost", directory)
	if !reflect.DeepEqual(ids, Mentions{1}) {
		t.Errorf("ids = %v, want [1]", ids)
	}
	if !reflect.DeepEqual(unmatched, []string{"nobody", "ghost"}) {
		t.Errorf("unmatched = %v, want [nobody ghost]", unmatched)
	}
}

func TestNewlyMentioned(t *testing.T) {
	tests := []struct {
		name     string
		previous Mentions
		current  Mentions
		actor    int64
		want     []int64
	}{
		{"fresh message", nil, Mentions{1, 4}, 9, []int64{1, 4}},
		{"self mention skipped", nil, Mentions{2}, 2, nil},
		{"edit keeps existing silent", Mentions{1}, Mentions{1, 5}, 9, []int64{5}},
		{"removal notifies nobody", Mentions{1, 5}, Mentions{1}, 9, nil},
		{"no mentions", Mentions{1}, nil, 9, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewlyMentioned(tt.previous, tt.current, tt.actor)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewlyMentioned() = %v, want %v", got, tt.want)
			}
		})
	}
}
