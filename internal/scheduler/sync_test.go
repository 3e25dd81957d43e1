package scheduler

import (
	"context"
	"errors"
	"testing"

	"loterias-bot/internal/api"
	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	latest  int
	missing map[int]bool
	calls   []int
	err     error
}

func (f *fakeFetcher) draw(contest int) *database.Draw {
	return &database.Draw{Contest: contest, Numbers: []int{1, 2, 3, 4, 5, contest%50 + 6}}
}

func (f *fakeFetcher) FetchLatest(ctx context.Context, game config.Game) (*database.Draw, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.draw(f.latest), nil
}

func (f *fakeFetcher) FetchContest(ctx context.Context, game config.Game, contest int) (*database.Draw, error) {
	f.calls = append(f.calls, contest)
	if f.missing[contest] {
		return nil, api.ErrContestNotFound
	}
	return f.draw(contest), nil
}

type fakeRecorder struct {
	latest  *database.Draw
	added   []database.Draw
	sources []string
}

func (r *fakeRecorder) LatestDraw(key string) (*database.Draw, error) {
	return r.latest, nil
}

func (r *fakeRecorder) AddDraw(key string, draw database.Draw, source string) (*database.Draw, error) {
	r.added = append(r.added, draw)
	r.sources = append(r.sources, source)
	r.latest = &draw
	return &draw, nil
}

type fakeNotifier struct {
	contests []int
}

func (n *fakeNotifier) BroadcastNewDraw(game config.Game, draw *database.Draw) error {
	n.contests = append(n.contests, draw.Contest)
	return nil
}

func quina(t *testing.T, schedule string) config.Game {
	t.Helper()
	g, err := config.BuildGame(config.GameSpec{
		Key: "quina", MinNum: 1, MaxNum: 80, NumBolas: 5, APISlug: "quina", SyncSchedule: schedule,
	})
	require.NoError(t, err)
	return g
}

func TestSyncGameCatchesUpMissingContests(t *testing.T) {
	game := quina(t, "")
	fetcher := &fakeFetcher{latest: 104, missing: map[int]bool{102: true}}
	recorder := &fakeRecorder{latest: &database.Draw{Contest: 100}}
	notifier := &fakeNotifier{}

	s := NewSyncer([]config.Game{game}, fetcher, recorder, notifier, nil)
	added, err := s.SyncGame(context.Background(), game)
	require.NoError(t, err)

	assert.Equal(t, 3, added)
	assert.Equal(t, []int{101, 102, 103}, fetcher.calls)
	assert.Equal(t, []int{101, 103, 104}, notifier.contests)
	assert.Equal(t, []string{engine.SourceAPI, engine.SourceAPI, engine.SourceAPI}, recorder.sources)
}

func TestSyncGameUpToDate(t *testing.T) {
	game := quina(t, "")
	fetcher := &fakeFetcher{latest: 100}
	recorder := &fakeRecorder{latest: &database.Draw{Contest: 100}}

	added, err := NewSyncer(nil, fetcher, recorder, nil, nil).SyncGame(context.Background(), game)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, recorder.added)
}

func TestSyncGameLimitsCatchUp(t *testing.T) {
	game := quina(t, "")
	fetcher := &fakeFetcher{latest: 500}
	recorder := &fakeRecorder{}

	s := NewSyncer(nil, fetcher, recorder, nil, nil)
	s.MaxCatchUp = 3
	added, err := s.SyncGame(context.Background(), game)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, 498, recorder.added[0].Contest)
}

func TestSyncGameFetchError(t *testing.T) {
	game := quina(t, "")
	fetcher := &fakeFetcher{err: errors.New("offline")}

	_, err := NewSyncer(nil, fetcher, &fakeRecorder{}, nil, nil).SyncGame(context.Background(), game)
	assert.ErrorContains(t, err, "offline")
}

func TestStartSchedulesConfiguredGames(t *testing.T) {
	noSchedule := quina(t, "")
	scheduled := quina(t, "30 21 * * 1-6")

	s := NewSyncer([]config.Game{noSchedule, scheduled}, &fakeFetcher{}, &fakeRecorder{}, nil, nil)
	n, err := s.Start()
	require.NoError(t, err)
	defer s.Stop()
	assert.Equal(t, 1, n)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewSyncer([]config.Game{quina(t, "every day")}, &fakeFetcher{}, &fakeRecorder{}, nil, nil)
	_, err := s.Start()
	assert.Error(t, err)
}
