package player

import (
	"context"
	"sync"
	"testing"

	"schedule-bot/pkg/logx"
)

func TestGetOrCreateSingleSession(t *testing.T) {
	r := NewRegistry(&fakeConnector{}, &memVolumes{}, logx.Nop())

	const n = 50
	got := make([]*Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = r.GetOrCreate("g1")
		}()
	}
	wg.Wait()

	for _, s := range got {
		if s != got[0] {
			t.Fatal("two sessions created for one guild")
		}
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d", r.Len())
	}
}

func TestGetOrCreateVolume(t *testing.T) {
	vols := &memVolumes{vals: map[string]float64{"g2": 0.4}}
	r := NewRegistry(&fakeConnector{}, vols, logx.Nop())

	if v := r.GetOrCreate("g1").Volume(); v != DefaultVolume {
		t.Fatalf("default volume = %v", v)
	}
	s := r.GetOrCreate("g2")
	if s.Volume() != 0.4 {
		t.Fatalf("stored volume = %v", s.Volume())
	}

	vols.vals["g2"] = 0.9
	if r.GetOrCreate("g2").Volume() != 0.4 {
		t.Fatal("live session re-read the stored volume")
	}

	r2 := NewRegistry(&fakeConnector{}, nil, logx.Nop(), WithDefaultVolume(0.3))
	if v := r2.GetOrCreate("g").Volume(); v != 0.3 {
		t.Fatalf("configured default = %v", v)
	}
}

func TestLookupDoesNotCreate(t *testing.T) {
	r := NewRegistry(&fakeConnector{}, nil, logx.Nop())
	if _, ok := r.Lookup("g1"); ok {
		t.Fatal("Lookup created a session")
	}
	r.GetOrCreate("g1")
	if _, ok := r.Lookup("g1"); !ok {
		t.Fatal("Lookup missed a session")
	}
}

func TestCloseAllReleasesTransports(t *testing.T) {
	conn := &fakeConnector{}
	r := NewRegistry(conn, nil, logx.Nop())
	ctx := context.Background()

	for _, g := range []string{"g1", "g2", "g3"} {
		s := r.GetOrCreate(g)
		if err := s.Connect(ctx, lounge); err != nil {
			t.Fatal(err)
		}
		_ = s.Play(ctx, track(g))
	}
	if r.Playing() != 3 {
		t.Fatalf("Playing() = %d", r.Playing())
	}

	if err := r.CloseAll(ctx); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after CloseAll", r.Len())
	}
	for i, ft := range conn.transports {
		if !ft.disconnected || ft.active != 0 {
			t.Errorf("transport %d not released", i)
		}
	}
}

func TestVolumeWithoutSession(t *testing.T) {
	vols := &memVolumes{vals: map[string]float64{"g2": 0.4}}
	r := NewRegistry(&fakeConnector{}, vols, logx.Nop(), WithDefaultVolume(0.25))

	if v := r.Volume("g1"); v != 0.25 {
		t.Fatalf("Volume(g1) = %v, want default", v)
	}
	if v := r.Volume("g2"); v != 0.4 {
		t.Fatalf("Volume(g2) = %v, want stored", v)
	}
	if r.Len() != 0 {
		t.Fatalf("Volume created a session: Len() = %d", r.Len())
	}
}
