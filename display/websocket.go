package ritornello

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	Mr "github.com/maroda/ritornello/rhythm"
	Mt "github.com/maroda/ritornello/types"
)

// PatternPush is one websocket frame: the full pattern summary plus
// the ingest total, enough for a UI to redraw its panel.
type PatternPush struct {
	Timestamps int              `json:"timestamps"`
	Patterns   []Mt.PatternInfo `json:"patterns"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebsocketHandler pushes the pattern summary on a fixed beat until
// the client goes away.
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	v.Stats.WSClientUp()
	defer v.Stats.WSClientDown()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		push := v.GetPatternPush()
		if err := conn.WriteJSON(push); err != nil {
			return // Connection closed
		}
	}
}

// GetPatternPush snapshots the set for one frame. Period counts are
// rounded to two digits; the frame is for redrawing a panel, not math.
func (v *View) GetPatternPush() PatternPush {
	// Make sure we're not nil
	if v.Set == nil {
		return PatternPush{Patterns: []Mt.PatternInfo{}}
	}

	v.Set.MU.RLock()
	defer v.Set.MU.RUnlock()

	info := v.Set.Info()
	for i := range info {
		info[i].Periods = Mr.FloatPrecise(info[i].Periods, 2)
	}

	return PatternPush{
		Timestamps: len(v.Set.Timestamps),
		Patterns:   info,
	}
}
