package app

import (
	"sort"
	"time"

	"quiz-coordinator/internal/domain"
)

// Sender delivers one outbound message to a single connection. Implementations
// must not block; a full buffer drops the message and returns false. Messages
// accepted by the same Sender are delivered in acceptance order.
type Sender interface {
	Send(msg any) bool
}

type playerState struct {
	participant domain.Participant
	conn        Sender // nil while disconnected
}

// registry tracks every live connection, its role, and the player roster.
// Disconnected players are kept so their ledger entries and scores survive a
// reconnect. Not self-locking: all access is serialized by the coordinator.
type registry struct {
	admin     Sender
	players   map[string]*playerState // by player ID
	byConn    map[Sender]string       // connection -> player ID
	watchers  map[Sender]struct{}     // leaderboard-only subscribers
	nextOrder int
}

func newRegistry() *registry {
	return &registry{
		players:  make(map[string]*playerState),
		byConn:   make(map[Sender]string),
		watchers: make(map[Sender]struct{}),
	}
}

// registerAdmin makes conn the authoritative admin (last registered wins) and
// returns the demoted previous admin connection, if any.
func (r *registry) registerAdmin(conn Sender) Sender {
	demoted := r.admin
	if demoted == conn {
		demoted = nil
	}
	r.admin = conn
	delete(r.watchers, conn)
	return demoted
}

// registerPlayer attaches conn to a roster identity. A name matching exactly
// one disconnected participant reclaims that identity (reconnect); otherwise a
// fresh identity is created, so two connected players may share a display name
// and still stay distinct ledger entries.
func (r *registry) registerPlayer(conn Sender, name, newID string, now time.Time) (*domain.Participant, bool) {
	var reclaim *playerState
	for _, ps := range r.players {
		if ps.participant.Name != name || ps.participant.Connected {
			continue
		}
		if reclaim != nil {
			// Ambiguous: several disconnected players share the name.
			reclaim = nil
			break
		}
		reclaim = ps
	}

	delete(r.watchers, conn)

	if reclaim != nil {
		reclaim.participant.Connected = true
		reclaim.conn = conn
		r.byConn[conn] = reclaim.participant.ID
		return &reclaim.participant, true
	}

	ps := &playerState{
		participant: domain.Participant{
			ID:        newID,
			Name:      name,
			Connected: true,
			JoinOrder: r.nextOrder,
			JoinedAt:  now,
		},
		conn: conn,
	}
	r.nextOrder++
	r.players[ps.participant.ID] = ps
	r.byConn[conn] = ps.participant.ID
	return &ps.participant, false
}

// deregister drops conn from whatever role it held. The player identity (and
// its answers) stays in the roster, flagged disconnected.
func (r *registry) deregister(conn Sender) (domain.Role, *domain.Participant) {
	delete(r.watchers, conn)

	if r.admin == conn {
		r.admin = nil
		return domain.RoleAdmin, nil
	}
	id, ok := r.byConn[conn]
	if !ok {
		return "", nil
	}
	delete(r.byConn, conn)
	ps := r.players[id]
	ps.participant.Connected = false
	ps.conn = nil
	return domain.RolePlayer, &ps.participant
}

func (r *registry) playerByConn(conn Sender) *playerState {
	id, ok := r.byConn[conn]
	if !ok {
		return nil
	}
	return r.players[id]
}

func (r *registry) isAdmin(conn Sender) bool {
	return r.admin != nil && r.admin == conn
}

func (r *registry) addWatcher(conn Sender) {
	if r.isAdmin(conn) {
		return
	}
	if _, ok := r.byConn[conn]; ok {
		return
	}
	r.watchers[conn] = struct{}{}
}

// roster reports every known player, connected or not, in join order.
func (r *registry) roster() []domain.RosterEntry {
	ordered := r.participantsInOrder()
	entries := make([]domain.RosterEntry, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, domain.RosterEntry{Name: p.Name, Connected: p.Connected})
	}
	return entries
}

func (r *registry) participantsInOrder() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.players))
	for _, ps := range r.players {
		out = append(out, ps.participant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}

func (r *registry) onlinePlayers() int {
	n := 0
	for _, ps := range r.players {
		if ps.participant.Connected {
			n++
		}
	}
	return n
}

// playerConns returns the live player connections for fan-out.
func (r *registry) playerConns() []Sender {
	conns := make([]Sender, 0, len(r.byConn))
	for conn := range r.byConn {
		conns = append(conns, conn)
	}
	return conns
}

func (r *registry) watcherConns() []Sender {
	conns := make([]Sender, 0, len(r.watchers))
	for conn := range r.watchers {
		conns = append(conns, conn)
	}
	return conns
}
