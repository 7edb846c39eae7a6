package ritornello

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	Mo "github.com/maroda/ritornello/obvy"
	"github.com/maroda/ritornello/plugin"
	Mr "github.com/maroda/ritornello/rhythm"
	Mt "github.com/maroda/ritornello/types"
)

// View serves everything a consumer of the pattern set needs:
// ingest, scores, density curves, and the terminal renderer.
// It holds the set's RWMutex around every access; the core itself
// does not lock.
type View struct {
	Set     *Mr.RhythmSet       // the learned pattern set
	Stats   *Mo.StatsInternal   // Internal status for prometheus
	Journal plugin.EventJournal // optional durability, nil = off
	server  *http.Server
}

// NewView wires a View around an existing set.
func NewView(set *Mr.RhythmSet) *View {
	return &View{
		Set:   set,
		Stats: Mo.NewStatsInternal(),
	}
}

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket pattern summaries for UIs
// - Version for programmatic use
// - Ingest and scoring endpoints for callers
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)
	r.HandleFunc("/api/version", v.VersionHandler)
	r.HandleFunc("/api/patterns", v.PatternsHandler)
	r.HandleFunc("/api/density/{name}", v.DensityHandler)
	r.HandleFunc("/api/add", v.AddHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/likelihood", v.LikelihoodHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/consecutive", v.ConsecutiveHandler)
	r.HandleFunc("/api/embeddings", v.EmbeddingsHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// PatternsHandler reports all nine patterns, mature or not,
// with their validity gates.
func (v *View) PatternsHandler(w http.ResponseWriter, r *http.Request) {
	v.Set.MU.RLock()
	info := v.Set.Info()
	total := len(v.Set.Timestamps)
	v.Set.MU.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Timestamps int              `json:"timestamps"`
		Patterns   []Mt.PatternInfo `json:"patterns"`
	}{Timestamps: total, Patterns: info})
}

// DensityHandler serves one pattern's sampled curve.
// Deriving a curve fills the pattern's memo, so this takes the
// write lock even though it only reads data.
func (v *View) DensityHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dim := 1000
	if d := r.URL.Query().Get("dim"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			http.Error(w, "dim must be a positive integer", http.StatusBadRequest)
			return
		}
		dim = parsed
	}

	v.Set.MU.Lock()
	defer v.Set.MU.Unlock()

	for _, p := range v.Set.Patterns() {
		if p.Name != name {
			continue
		}
		start := time.Now()
		curve, err := p.Density(dim)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		v.Stats.RecFitTimer(time.Since(start).Seconds())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Info  Mt.PatternInfo   `json:"info"`
			Curve *Mt.DensityCurve `json:"curve"`
		}{Info: p.Info(), Curve: curve})
		return
	}

	http.Error(w, "unknown pattern: "+name, http.StatusNotFound)
}

// TimestampsRequest is the ingest/scoring request body.
// Timestamps are RFC3339; any zone is accepted and normalized to UTC.
type TimestampsRequest struct {
	Source     string   `json:"source"`
	Timestamps []string `json:"timestamps"`
}

func decodeTimestamps(w http.ResponseWriter, r *http.Request) ([]time.Time, string, bool) {
	var req TimestampsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode request: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}

	stamps := make([]time.Time, 0, len(req.Timestamps))
	for _, raw := range req.Timestamps {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "bad timestamp "+raw, http.StatusBadRequest)
			return nil, "", false
		}
		stamps = append(stamps, ts)
	}
	return stamps, req.Source, true
}

// AddHandler ingests a batch of timestamps into the set and, when a
// journal is attached, records each one for replay.
func (v *View) AddHandler(w http.ResponseWriter, r *http.Request) {
	stamps, source, ok := decodeTimestamps(w, r)
	if !ok {
		return
	}

	v.Set.MU.Lock()
	err := v.Set.Add(stamps...)
	v.Set.MU.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v.Stats.RecIngest(len(stamps))

	if v.Journal != nil {
		for _, ts := range stamps {
			ev := &Mt.Event{SourceID: source, Timestamp: ts.UTC()}
			if err := v.Journal.WriteEvent(ev); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"added": len(stamps)})
}

// LikelihoodHandler scores timestamps against the learned set.
// Scores come back ordered by ascending timestamp.
func (v *View) LikelihoodHandler(w http.ResponseWriter, r *http.Request) {
	stamps, _, ok := decodeTimestamps(w, r)
	if !ok {
		return
	}

	v.Set.MU.Lock()
	scores := v.Set.Likelihood(stamps...)
	v.Set.MU.Unlock()
	v.Stats.RecScored(len(stamps))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]float64{"scores": scores})
}

// ConsecutiveHandler reports activity streaks per valid pattern.
func (v *View) ConsecutiveHandler(w http.ResponseWriter, r *http.Request) {
	minLength := 2
	if m := r.URL.Query().Get("min_length"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil || parsed < 1 {
			http.Error(w, "min_length must be a positive integer", http.StatusBadRequest)
			return
		}
		minLength = parsed
	}

	v.Set.MU.RLock()
	runs := v.Set.Consecutive(minLength)
	v.Set.MU.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// EmbeddingsHandler serves the unit fingerprint of every valid pattern.
func (v *View) EmbeddingsHandler(w http.ResponseWriter, r *http.Request) {
	v.Set.MU.Lock()
	embeddings := v.Set.Embeddings()
	v.Set.MU.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(embeddings)
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// StartDataServ blocks serving the mux, traced end to end.
func (v *View) StartDataServ(addr string) error {
	handler := otelhttp.NewHandler(v.SetupMux(), "ritornello-dataserv")
	v.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return v.server.ListenAndServe()
}
