package roster

import (
	"sort"
	"time"

	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

const unknownTier = 99

func Tier(s model.ResponseStatus) int {
	switch s {
	case model.StatusResponding:
		return 0
	case model.StatusStandby:
		return 1
	case model.StatusUnavailable:
		return 2
	default:
		return unknownTier
	}
}

// Rank returns the display order of a roster snapshot evaluated at now.
// Responders come first ordered by soonest arrival, the other tiers keep
// their input order. The input slice is not modified.
func Rank(entries []*model.RosterEntry, now time.Time) []*model.RosterEntry {
	res := make([]*model.RosterEntry, 0, len(entries))

	for _, e := range entries {
		if e != nil && e.Response != nil {
			res = append(res, e)
		}
	}

	dist := make(map[*model.RosterEntry]int, len(res))

	for _, e := range res {
		if e.Response.Status == model.StatusResponding {
			dist[e] = eta.MinutesUntil(e.Response.ETA, now)
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]

		ta, tb := Tier(a.Response.Status), Tier(b.Response.Status)
		if ta != tb {
			return ta < tb
		}

		if a.Response.Status == model.StatusResponding {
			return dist[a] < dist[b]
		}

		return false
	})

	return res
}
