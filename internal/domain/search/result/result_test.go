package result

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/hoteldex/internal/domain/document"
)

func f(v float64) *float64 { return &v }

func hit(id string, score float64, rating, stars *float64) Hit {
	return Hit{Document: document.Document{ID: id, Rating: rating, Stars: stars}, Score: score}
}

func ids(hits []Hit) string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return strings.Join(out, ",")
}

func TestRank_ScoreThenKeys(t *testing.T) {
	hits := []Hit{
		hit("a", 1, f(7), f(3)),
		hit("b", 2, nil, nil),
		hit("c", 1, f(9), f(2)),
		hit("d", 1, f(9), f(5)),
		hit("e", 1, nil, f(5)),
	}

	got := Rank(hits, 0, Rating, Stars)
	if ids(got) != "b,d,c,a,e" {
		t.Errorf("order = %s", ids(got))
	}
}

func TestRank_Limit(t *testing.T) {
	hits := make([]Hit, 60)
	for i := range hits {
		hits[i] = hit(string(rune('a'+i%26)), float64(i), nil, nil)
	}
	got := Rank(hits, 50)
	if len(got) != 50 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Score != 59 {
		t.Errorf("top score = %v", got[0].Score)
	}
}

func TestRank_HotelsNumber(t *testing.T) {
	n := func(v int) *int { return &v }
	hits := []Hit{
		{Document: document.Document{ID: "small", HotelsNumber: n(3)}, Score: 1},
		{Document: document.Document{ID: "big", HotelsNumber: n(300)}, Score: 1},
	}
	if got := Rank(hits, 10, HotelsNumber); got[0].ID != "big" {
		t.Errorf("order = %s", ids(got))
	}
}

func TestPage_JSONShape(t *testing.T) {
	p := Page{Source: SourceLive, Results: []Hit{hit("x", 0.5, nil, nil)}}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"source":"live"`) || !strings.Contains(s, `"id":"x"`) || !strings.Contains(s, `"score":0.5`) {
		t.Errorf("unexpected JSON: %s", s)
	}
}
