package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

type fakeFantasyProvider struct {
	calls atomic.Int32
	// failures maps a method name to the error it returns.
	failures map[string]error
	panicOn  string
}

func (p *fakeFantasyProvider) fetch(method, leagueKey string) ([]byte, error) {
	p.calls.Add(1)
	if method == p.panicOn {
		panic("provider exploded")
	}
	if err := p.failures[method]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`{"method":%q,"league_key":%q}`, method, leagueKey)), nil
}

func (p *fakeFantasyProvider) FetchSettings(_ context.Context, _ string, leagueKey string) ([]byte, error) {
	return p.fetch("settings", leagueKey)
}

func (p *fakeFantasyProvider) FetchStandings(_ context.Context, _ string, leagueKey string) ([]byte, error) {
	return p.fetch("standings", leagueKey)
}

func (p *fakeFantasyProvider) FetchScoreboard(_ context.Context, _ string, leagueKey string) ([]byte, error) {
	return p.fetch("scoreboard", leagueKey)
}

func (p *fakeFantasyProvider) FetchFreeAgents(_ context.Context, _ string, leagueKey string) ([]byte, error) {
	return p.fetch("free_agents", leagueKey)
}

func (p *fakeFantasyProvider) FetchRosters(_ context.Context, _ string, leagueKey string) ([]byte, error) {
	return p.fetch("rosters", leagueKey)
}

type fakeScheduleProvider struct {
	calls atomic.Int32
	err   error
}

func (p *fakeScheduleProvider) FetchSchedule(_ context.Context, season string) ([]byte, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return []byte(fmt.Sprintf(`{"season":%q,"games":[]}`, season)), nil
}

type memoryBlobUploader struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobUploader() *memoryBlobUploader {
	return &memoryBlobUploader{blobs: make(map[string][]byte)}
}

func (u *memoryBlobUploader) Upload(_ context.Context, blobName string, body []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blobs[blobName] = append([]byte(nil), body...)
	return nil
}

func (u *memoryBlobUploader) names() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.blobs))
	for name := range u.blobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (u *memoryBlobUploader) get(name string) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.blobs[name]
}
