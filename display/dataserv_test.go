package ritornello_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	Md "github.com/maroda/ritornello/display"
	Mr "github.com/maroda/ritornello/rhythm"
	Mt "github.com/maroda/ritornello/types"
)

func TestVersionHandler(t *testing.T) {
	view := makeView(t)
	resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	t.Run("Returns the version", func(t *testing.T) {
		assertStatus(t, resp.Code, http.StatusOK)
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["version"] == "" {
			t.Error("version should not be empty")
		}
	})
}

func TestAddAndPatternsHandlers(t *testing.T) {
	view := makeView(t)

	t.Run("Ingest reports the count", func(t *testing.T) {
		payload := `{"source":"craque","timestamps":["2021-03-01T13:00:00Z","2021-03-02T13:05:00Z"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/add", strings.NewReader(payload))
		resp := serve(t, view, req)

		assertStatus(t, resp.Code, http.StatusOK)
		var body map[string]int
		decodeBody(t, resp, &body)
		if body["added"] != 2 {
			t.Errorf("got %d added, want 2", body["added"])
		}
	})

	t.Run("Patterns reflect the ingest", func(t *testing.T) {
		resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
		assertStatus(t, resp.Code, http.StatusOK)

		var body struct {
			Timestamps int              `json:"timestamps"`
			Patterns   []Mt.PatternInfo `json:"patterns"`
		}
		decodeBody(t, resp, &body)
		if body.Timestamps != 2 {
			t.Errorf("got %d timestamps, want 2", body.Timestamps)
		}
		if len(body.Patterns) != 9 {
			t.Errorf("got %d patterns, want 9", len(body.Patterns))
		}
	})

	t.Run("Bad timestamps bounce", func(t *testing.T) {
		payload := `{"timestamps":["yesterday-ish"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/add", strings.NewReader(payload))
		resp := serve(t, view, req)
		assertStatus(t, resp.Code, http.StatusBadRequest)
	})
}

func TestLikelihoodHandler(t *testing.T) {
	view := makeView(t)
	train(t, view.Set)

	payload := `{"timestamps":["2021-04-02T13:05:00Z","2021-04-02T02:00:00Z"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/likelihood", strings.NewReader(payload))
	resp := serve(t, view, req)

	assertStatus(t, resp.Code, http.StatusOK)
	var body map[string][]float64
	decodeBody(t, resp, &body)
	scores := body["scores"]
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}
	// ascending timestamp order: 02:00 scores first and lower
	if scores[0] >= scores[1] {
		t.Errorf("02:00 (%v) should score below 13:05 (%v)", scores[0], scores[1])
	}
}

func TestDensityHandler(t *testing.T) {
	view := makeView(t)
	train(t, view.Set)

	t.Run("Serves a curve with its info", func(t *testing.T) {
		resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/density/day?dim=200", nil))
		assertStatus(t, resp.Code, http.StatusOK)

		var body struct {
			Info  Mt.PatternInfo   `json:"info"`
			Curve *Mt.DensityCurve `json:"curve"`
		}
		decodeBody(t, resp, &body)
		if body.Info.Name != "day" {
			t.Errorf("got pattern %q, want day", body.Info.Name)
		}
		if len(body.Curve.Xs) != 200 || len(body.Curve.Ys) != 200 {
			t.Errorf("got %d/%d samples, want 200", len(body.Curve.Xs), len(body.Curve.Ys))
		}
	})

	t.Run("Unknown pattern is a 404", func(t *testing.T) {
		resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/density/decade", nil))
		assertStatus(t, resp.Code, http.StatusNotFound)
	})

	t.Run("Bad dim is a 400", func(t *testing.T) {
		resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/density/day?dim=-3", nil))
		assertStatus(t, resp.Code, http.StatusBadRequest)
	})
}

func TestConsecutiveHandler(t *testing.T) {
	view := makeView(t)
	train(t, view.Set)

	resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/consecutive?min_length=2", nil))
	assertStatus(t, resp.Code, http.StatusOK)

	var body map[string][]Mt.Run
	decodeBody(t, resp, &body)
	if _, ok := body["day"]; !ok {
		t.Error("day pattern should report runs after daily training")
	}
}

func TestEmbeddingsHandler(t *testing.T) {
	view := makeView(t)
	train(t, view.Set)

	resp := serve(t, view, httptest.NewRequest(http.MethodGet, "/api/embeddings", nil))
	assertStatus(t, resp.Code, http.StatusOK)

	var body map[string][]float64
	decodeBody(t, resp, &body)
	v, ok := body["day"]
	if !ok {
		t.Fatal("day pattern should be embedded after daily training")
	}
	if len(v) != Mr.DefaultVectorDimension {
		t.Errorf("got %d dimensions, want %d", len(v), Mr.DefaultVectorDimension)
	}
}

// Helpers //

func makeView(t *testing.T) *Md.View {
	t.Helper()
	set, err := Mr.NewRhythmSet()
	if err != nil {
		t.Fatalf("could not build set: %v", err)
	}
	return Md.NewView(set)
}

// train feeds a daily 13:00 habit, enough to mature the day pattern
func train(t *testing.T, set *Mr.RhythmSet) {
	t.Helper()
	for day := 1; day <= 30; day++ {
		ts := time.Date(2021, 3, day, 13, day%10, 0, 0, time.UTC)
		if err := set.Add(ts); err != nil {
			t.Fatalf("could not train set: %v", err)
		}
	}
}

func serve(t *testing.T, view *Md.View, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	view.SetupMux().ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("got status %d, want %d", got, want)
	}
}
