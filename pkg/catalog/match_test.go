package catalog

import (
	"reflect"
	"testing"
)

var testAbbr = Abbreviations{
	"pt":  {"phương trình"},
	"ht":  {"hình thang", "hình tròn", "hệ thống", "hiện tại"},
	"adn": {"adn", "gen", "di truyền"},
}

var mathTopics = []string{
	"Hàm số bậc nhất", "Hàm số bậc hai", "Hệ phương trình", "Bất phương trình",
	"Phân số", "Căn bậc hai", "Hình thang", "Số nguyên tố",
}

func TestFilterTopics_EmptyQueryIsIdentity(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		got := FilterTopics(mathTopics, q, testAbbr)
		if !reflect.DeepEqual(got, mathTopics) {
			t.Errorf("FilterTopics(%q) = %v, want all topics in order", q, got)
		}
	}
	if got := FilterTopics(nil, "", testAbbr); got != nil {
		t.Errorf("FilterTopics(nil, \"\") = %v, want nil", got)
	}
}

func TestFilterTopics(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"accent-insensitive substring", "phuong", []string{"Hệ phương trình", "Bất phương trình"}},
		{"accented query", "PHƯƠNG TRÌNH", []string{"Hệ phương trình", "Bất phương trình"}},
		{"all words any order", "hai bac", []string{"Hàm số bậc hai", "Căn bậc hai"}},
		{"all words conjunction", "ham so", []string{"Hàm số bậc nhất", "Hàm số bậc hai"}},
		{"abbreviation", "pt", []string{"Hệ phương trình", "Bất phương trình"}},
		{"abbreviation with several expansions", "ht", []string{"Hình thang"}},
		{"no match", "tich phan", []string{}},
		{"surrounding spaces", "  so nguyen  ", []string{"Số nguyên tố"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTopics(mathTopics, tt.query, testAbbr)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterTopics(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterTopics_ConjunctionExcludesPartial(t *testing.T) {
	topics := []string{"Hàm số bậc nhất", "Phân số", "Hàm đặc trưng"}
	got := FilterTopics(topics, "ham so", nil)
	want := []string{"Hàm số bậc nhất"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTopics = %v, want %v", got, want)
	}
}

func TestFilterTopics_AbbreviationKeyStillMatchesDirectly(t *testing.T) {
	// "adn" is both an abbreviation key and a literal substring.
	topics := []string{"ADN và gen", "Đột biến gen", "Di truyền Menđen", "Quang hợp"}
	got := FilterTopics(topics, "adn", testAbbr)
	want := []string{"ADN và gen", "Đột biến gen", "Di truyền Menđen"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTopics = %v, want %v", got, want)
	}

	// Without the table only the literal substring remains.
	got = FilterTopics(topics, "adn", nil)
	if !reflect.DeepEqual(got, []string{"ADN và gen"}) {
		t.Errorf("FilterTopics without abbreviations = %v", got)
	}
}

func TestFilterTopics_SubstringSoundness(t *testing.T) {
	for _, topic := range mathTopics {
		n := Normalize(topic)
		for i := 0; i < len(n); i++ {
			for j := i + 1; j <= len(n); j++ {
				q := n[i:j]
				if Normalize(q) == "" {
					continue
				}
				got := FilterTopics([]string{topic}, q, nil)
				if len(got) != 1 {
					t.Fatalf("FilterTopics([%q], %q) = %v, want the topic", topic, q, got)
				}
			}
		}
	}
}

func TestFilterTopics_Deterministic(t *testing.T) {
	first := FilterTopics(mathTopics, "ht", testAbbr)
	for i := 0; i < 20; i++ {
		got := FilterTopics(mathTopics, "ht", testAbbr)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: %v, want %v", i, got, first)
		}
	}
}

func TestMatcher_NormalizesAbbreviationKeys(t *testing.T) {
	m := NewMatcher(nil, Abbreviations{"ĐĐ": {"Dòng điện"}})
	if got := m.Expansions("dd"); !reflect.DeepEqual(got, []string{"dong dien"}) {
		t.Errorf("Expansions(dd) = %v, want [dong dien]", got)
	}
	got := m.Filter([]string{"Dòng điện không đổi", "Điện trở"}, "đđ")
	if !reflect.DeepEqual(got, []string{"Dòng điện không đổi"}) {
		t.Errorf("Filter(đđ) = %v", got)
	}
}

func TestCatalogSearch_MatchesFilterTopics(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	abbr := c.Abbreviations()
	for _, s := range c.Subjects() {
		for _, q := range []string{"", "pt", "ham so", "dien", "hh", "bac 2", "an toan"} {
			got, err := c.Search(s.ID, q)
			if err != nil {
				t.Fatalf("Search(%s, %q): %v", s.ID, q, err)
			}
			want := FilterTopics(s.Topics, q, abbr)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Search(%s, %q) = %v, want %v", s.ID, q, got, want)
			}
		}
	}
	if _, err := c.Search("nope", "x"); err == nil {
		t.Error("Search(unknown subject) returned no error")
	}
}
