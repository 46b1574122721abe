package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"sinfiltro/internal/cache"
	"sinfiltro/internal/model"
)

// In-memory fakes for the repository and cache interfaces. Reads and writes
// copy their values so callers mutating a returned struct never alias the
// stored one, matching what a real decode round-trip gives you.

// --- RoomRepo ---

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*model.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*model.Room)}
}

func copyRoom(r *model.Room) *model.Room {
	c := *r
	return &c
}

func (f *fakeRoomRepo) Create(_ context.Context, room *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = copyRoom(room)
	return nil
}

func (f *fakeRoomRepo) GetByCode(_ context.Context, code string) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.Code == code {
			return copyRoom(r), nil
		}
	}
	return nil, nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		return copyRoom(r), nil
	}
	return nil, nil
}

func (f *fakeRoomRepo) Update(_ context.Context, room *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = copyRoom(room)
	return nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	return nil
}

// --- PlayerRepo ---

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*model.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[string]*model.Player)}
}

func copyPlayer(p *model.Player) *model.Player {
	c := *p
	return &c
}

func (f *fakePlayerRepo) Create(_ context.Context, player *model.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[player.ID] = copyPlayer(player)
	return nil
}

func (f *fakePlayerRepo) GetByID(_ context.Context, id string) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.players[id]; ok {
		return copyPlayer(p), nil
	}
	return nil, nil
}

func (f *fakePlayerRepo) GetByRoom(_ context.Context, roomID string) ([]*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Player
	for _, p := range f.players {
		if p.RoomID == roomID {
			out = append(out, copyPlayer(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (f *fakePlayerRepo) FindByRoomAndUser(_ context.Context, roomID, userID string) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.RoomID == roomID && p.UserID != nil && *p.UserID == userID {
			return copyPlayer(p), nil
		}
	}
	return nil, nil
}

func (f *fakePlayerRepo) CountByRoom(_ context.Context, roomID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.players {
		if p.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (f *fakePlayerRepo) Update(_ context.Context, player *model.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[player.ID] = copyPlayer(player)
	return nil
}

func (f *fakePlayerRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.players, id)
	return nil
}

func (f *fakePlayerRepo) ResetScores(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.RoomID == roomID {
			p.Score = 0
		}
	}
	return nil
}

func (f *fakePlayerRepo) AddScore(_ context.Context, playerID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.players[playerID]; ok {
		p.Score += points
	}
	return nil
}

func (f *fakePlayerRepo) SetConnected(_ context.Context, playerID string, connected bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.players[playerID]; ok {
		p.IsConnected = connected
		p.LastSeenAt = at
	}
	return nil
}

// --- SessionRepo ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.GameSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.GameSession)}
}

func copySession(s *model.GameSession) *model.GameSession {
	c := *s
	c.PlayerOrder = append([]string(nil), s.PlayerOrder...)
	c.UsedContentIDs = append([]string(nil), s.UsedContentIDs...)
	c.RoundAnswers = make(map[string]model.RoundAnswer, len(s.RoundAnswers))
	for k, v := range s.RoundAnswers {
		c.RoundAnswers[k] = v
	}
	c.RoundVotes = make(map[string]string, len(s.RoundVotes))
	for k, v := range s.RoundVotes {
		c.RoundVotes[k] = v
	}
	return &c
}

func (f *fakeSessionRepo) Create(_ context.Context, session *model.GameSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = copySession(session)
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return copySession(s), nil
	}
	return nil, nil
}

func (f *fakeSessionRepo) GetActiveByRoom(_ context.Context, roomID string) (*model.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RoomID == roomID && !s.IsGameOver {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) SetAnswer(_ context.Context, sessionID, playerID string, answer model.RoundAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.RoundAnswers[playerID] = answer
	}
	return nil
}

func (f *fakeSessionRepo) SetVote(_ context.Context, sessionID, voterID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.RoundVotes[voterID] = value
	}
	return nil
}

func (f *fakeSessionRepo) SetPhase(_ context.Context, sessionID string, phase model.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Phase = phase
	}
	return nil
}

func (f *fakeSessionRepo) ReplaceIfRound(_ context.Context, session *model.GameSession, expectedRound int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok || stored.CurrentRound != expectedRound {
		return false, nil
	}
	f.sessions[session.ID] = copySession(session)
	return true, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

// --- ContentRepo ---

type fakeContentRepo struct {
	mu    sync.Mutex
	items []*model.GameContent
}

func newFakeContentRepo(items ...*model.GameContent) *fakeContentRepo {
	return &fakeContentRepo{items: items}
}

func (f *fakeContentRepo) GetByID(_ context.Context, id string) (*model.GameContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			c := *it
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeContentRepo) FindActive(_ context.Context, categories []model.Category, excludeIDs []string) ([]*model.GameContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	wanted := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	var out []*model.GameContent
	for _, it := range f.items {
		if !it.IsActive || excluded[it.ID] {
			continue
		}
		if len(wanted) > 0 && !wanted[it.Category] {
			continue
		}
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeContentRepo) InsertMany(_ context.Context, items []*model.GameContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeContentRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

// --- Caches ---

type fakeRoomCache struct {
	mu    sync.Mutex
	metas map[string]*model.RoomMeta
}

func newFakeRoomCache() *fakeRoomCache {
	return &fakeRoomCache{metas: make(map[string]*model.RoomMeta)}
}

func (f *fakeRoomCache) SetMeta(_ context.Context, code string, meta *model.RoomMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := *meta
	f.metas[code] = &m
	return nil
}

func (f *fakeRoomCache) GetMeta(_ context.Context, code string) (*model.RoomMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metas[code]; ok {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (f *fakeRoomCache) SetStatus(_ context.Context, code string, status model.RoomStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metas[code]; ok {
		m.Status = status
	}
	return nil
}

func (f *fakeRoomCache) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metas, code)
	return nil
}

func (f *fakeRoomCache) Exists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.metas[code]
	return ok, nil
}

type fakePresenceCache struct {
	mu    sync.Mutex
	alive map[string]bool
}

func newFakePresenceCache() *fakePresenceCache {
	return &fakePresenceCache{alive: make(map[string]bool)}
}

func (f *fakePresenceCache) Touch(_ context.Context, roomCode, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[roomCode+":"+playerID] = true
	return nil
}

func (f *fakePresenceCache) Alive(_ context.Context, roomCode, playerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[roomCode+":"+playerID], nil
}

func (f *fakePresenceCache) Clear(_ context.Context, roomCode, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, roomCode+":"+playerID)
	return nil
}

type fakeLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int // roomCode -> playerID -> score
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{scores: make(map[string]map[string]int)}
}

func (f *fakeLeaderboard) UpdateScore(_ context.Context, roomCode, playerID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores[roomCode] == nil {
		f.scores[roomCode] = make(map[string]int)
	}
	f.scores[roomCode][playerID] = score
	return nil
}

func (f *fakeLeaderboard) GetTop(_ context.Context, roomCode string, limit int) ([]cache.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []cache.LeaderboardEntry
	for id, score := range f.scores[roomCode] {
		entries = append(entries, cache.LeaderboardEntry{PlayerID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeLeaderboard) GetRank(_ context.Context, roomCode, playerID string) (int64, error) {
	entries, _ := f.GetTop(context.Background(), roomCode, 0)
	for _, e := range entries {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return 0, nil
}

func (f *fakeLeaderboard) Remove(_ context.Context, roomCode, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.scores[roomCode]; ok {
		delete(room, playerID)
	}
	return nil
}

func (f *fakeLeaderboard) Reset(_ context.Context, roomCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scores, roomCode)
	return nil
}

// --- Broadcaster ---

type recordedEvent struct {
	RoomCode string
	PlayerID string
	Type     string
	Payload  interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) BroadcastToRoom(roomCode string, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{RoomCode: roomCode, Type: msgType, Payload: payload})
}

func (f *fakeBroadcaster) BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{RoomCode: roomCode, PlayerID: playerID, Type: msgType, Payload: payload})
}

func (f *fakeBroadcaster) DisconnectRoom(roomCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{RoomCode: roomCode, Type: "disconnect_room"})
}

func (f *fakeBroadcaster) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Test environment ---

type testEnv struct {
	roomRepo    *fakeRoomRepo
	playerRepo  *fakePlayerRepo
	sessionRepo *fakeSessionRepo
	contentRepo *fakeContentRepo
	roomCache   *fakeRoomCache
	presence    *fakePresenceCache
	leaderboard *fakeLeaderboard
	broadcast   *fakeBroadcaster

	authSvc    *AuthService
	contentSvc *ContentService
	roomSvc    *RoomService
	playerSvc  *PlayerService
	gameSvc    *GameService
	dispatcher *RoomDispatcher
}

func newTestEnv(content ...*model.GameContent) *testEnv {
	env := &testEnv{
		roomRepo:    newFakeRoomRepo(),
		playerRepo:  newFakePlayerRepo(),
		sessionRepo: newFakeSessionRepo(),
		contentRepo: newFakeContentRepo(content...),
		roomCache:   newFakeRoomCache(),
		presence:    newFakePresenceCache(),
		leaderboard: newFakeLeaderboard(),
		broadcast:   &fakeBroadcaster{},
	}

	env.dispatcher = NewRoomDispatcher()
	env.authSvc = NewAuthService("")
	env.contentSvc = NewContentService(env.contentRepo)
	env.roomSvc = NewRoomService(env.roomRepo, env.playerRepo, env.roomCache, env.authSvc)
	env.playerSvc = NewPlayerService(env.playerRepo, env.roomRepo, env.roomSvc, env.presence, env.leaderboard, env.authSvc, env.dispatcher)
	env.gameSvc = NewGameService(env.roomRepo, env.playerRepo, env.sessionRepo, env.contentSvc, env.roomSvc, env.leaderboard, env.dispatcher)

	env.roomSvc.SetBroadcaster(env.broadcast)
	env.playerSvc.SetBroadcaster(env.broadcast)
	env.gameSvc.SetBroadcaster(env.broadcast)
	return env
}
