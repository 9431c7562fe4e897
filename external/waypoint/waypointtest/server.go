package waypointtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// Server answers the stats, discovery and profile endpoints from memory.
// Point every base URL of the client at Server.URL.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	history    map[string][]Object
	countDelta map[string]int
	details    map[string]Object
	assets     map[string]Object
	gamertags  map[string]string
	failures   map[string]int
	requests   []*http.Request
	pageStarts []int
}

func NewServer() *Server {
	s := &Server{
		history:    make(map[string][]Object),
		countDelta: make(map[string]int),
		details:    make(map[string]Object),
		assets:     make(map[string]Object),
		gamertags:  make(map[string]string),
		failures:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetHistory stores a player's matches, newest first.
func (s *Server) SetHistory(xuid string, matches []Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[xuid] = matches
}

// SkewCount makes the count endpoint report delta more matches than stored.
func (s *Server) SkewCount(xuid string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countDelta[xuid] = delta
}

func (s *Server) SetDetail(guid string, detail Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[guid] = detail
}

// SetAsset registers a discovery payload. kind is maps, ugcGameVariants or
// playlists.
func (s *Server) SetAsset(kind, assetID, versionID string, payload Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets["/hi/"+kind+"/"+assetID+"/versions/"+versionID] = payload
}

func (s *Server) SetGamertag(xuid, gamertag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gamertags[xuid] = gamertag
}

// FailPath answers every request whose path contains fragment with status.
func (s *Server) FailPath(fragment string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[fragment] = status
}

// PageStarts lists the start offsets of every match history request.
func (s *Server) PageStarts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pageStarts...)
}

func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Clone(r.Context()))
	for fragment, status := range s.failures {
		if strings.Contains(r.URL.Path, fragment) {
			http.Error(w, `{"error":"injected"}`, status)
			return
		}
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/hi/players/"):
		s.handlePlayer(w, r)
	case strings.HasPrefix(path, "/hi/matches/") && strings.HasSuffix(path, "/stats"):
		guid := strings.TrimSuffix(strings.TrimPrefix(path, "/hi/matches/"), "/stats")
		detail, ok := s.details[guid]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, detail)
	case path == "/users/batch/profile/settings":
		s.handleProfiles(w, r)
	default:
		payload, ok := s.assets[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, payload)
	}
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/hi/players/")
	wrapped, suffix, _ := strings.Cut(rest, "/")
	xuid := strings.TrimSuffix(strings.TrimPrefix(wrapped, "xuid("), ")")
	history := s.history[xuid]

	switch suffix {
	case "matches/count":
		writeJSON(w, Object{"MatchesPlayedCount": len(history) + s.countDelta[xuid]})
	case "matches":
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		s.pageStarts = append(s.pageStarts, start)

		results := []any{}
		for i := start; i < len(history) && i < start+count; i++ {
			results = append(results, history[i])
		}
		writeJSON(w, Object{"Start": start, "Count": count, "ResultCount": len(results), "Results": results})
	case "matches-privacy":
		writeJSON(w, Object{"MatchesPrivacy": 1})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		UserIDs []string `json:"userIds"`
	}
	if err := sonic.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	users := make([]any, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		gamertag, ok := s.gamertags[id]
		if !ok {
			continue
		}
		users = append(users, Object{
			"id":       id,
			"hostId":   id,
			"settings": []any{Object{"id": "Gamertag", "value": gamertag}},
		})
	}
	writeJSON(w, Object{"profileUsers": users})
}

func writeJSON(w http.ResponseWriter, payload any) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}
