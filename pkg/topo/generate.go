package topo

import (
	"fmt"
	"math/rand"
)

// GenSpec describes a synthetic topology to generate.
type GenSpec struct {
	Relays    int      // backbone relay count (minimum 2)
	Servers   int      // servers, attached round-robin to relays
	GeoCodes  []string // one aggregation cluster per code
	AggPerGeo int      // aggregation nodes per geo code
	Seed      int64
}

// Generate builds a deterministic synthetic topology: a relay ring with a
// few chords, servers hung off relays, and per-geo aggregation nodes each
// linked to two distinct relays. Useful for pipeline smoke tests when no
// production topology is at hand.
func Generate(spec GenSpec) *Graph {
	rng := rand.New(rand.NewSource(spec.Seed))
	g := NewGraph()

	if spec.Relays < 2 {
		spec.Relays = 2
	}
	if spec.AggPerGeo < 1 {
		spec.AggPerGeo = 1
	}

	relays := make([]string, spec.Relays)
	for i := range relays {
		id := fmt.Sprintf("relay%02d", i)
		relays[i] = id
		g.AddNode(&Node{ID: id, Kind: KindRelay, Attrs: map[string]any{AttrType: string(KindRelay)}})
	}

	link := func(a, b string) {
		lat := 1 + rng.Float64()*19 // 1..20 ms
		g.AddEdge(&Edge{
			From:    a,
			To:      b,
			Weight:  lat,
			Latency: lat,
			Jitter:  rng.Float64() * 2,
			Attrs:   map[string]any{},
		})
	}

	// Backbone ring plus one chord per fourth relay.
	for i := range relays {
		link(relays[i], relays[(i+1)%len(relays)])
	}
	for i := 0; i+len(relays)/2 < len(relays); i += 4 {
		link(relays[i], relays[i+len(relays)/2])
	}

	for i := 0; i < spec.Servers; i++ {
		id := fmt.Sprintf("server%02d", i)
		g.AddNode(&Node{ID: id, Kind: KindServer, Attrs: map[string]any{AttrType: string(KindServer)}})
		link(id, relays[i%len(relays)])
	}

	for gi, code := range spec.GeoCodes {
		for j := 0; j < spec.AggPerGeo; j++ {
			id := fmt.Sprintf("pop_%s_%02d", code, j)
			g.AddNode(&Node{ID: id, Kind: KindAggregation, Attrs: map[string]any{
				AttrType:    string(KindAggregation),
				AttrGeoCode: code,
				"bw_up":     int64(10e6 + rng.Intn(90e6)),
				"bw_down":   int64(50e6 + rng.Intn(450e6)),
			}})
			r1 := relays[(gi+j)%len(relays)]
			r2 := relays[(gi+j+1)%len(relays)]
			link(id, r1)
			link(id, r2)
		}
	}

	g.Normalize()
	return g
}
