package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nlerner/breslov-rag/internal/engine"
	"github.com/nlerner/breslov-rag/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatSourceLimit caps how many sources travel with a chat answer; the
// full set is available over the REST API.
const chatSourceLimit = 3

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type     string          `json:"type"` // "question" or "avatar_start"
	Content  string          `json:"content,omitempty"`
	Language string          `json:"language,omitempty"`
	TopK     int             `json:"top_k,omitempty"`
	SDP      json.RawMessage `json:"sdp,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string                  `json:"type"` // "answer", "avatar_session", or "error"
	Content   string                  `json:"content,omitempty"`
	Sources   []models.SourceDocument `json:"sources,omitempty"`
	Metadata  *models.QueryMetadata   `json:"metadata,omitempty"`
	SessionID string                  `json:"session_id,omitempty"`
	SDP       json.RawMessage         `json:"sdp,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// One avatar session per connection, torn down with it.
	var avatarSession string
	if s.avatar != nil {
		session, err := s.avatar.NewSession(r.Context())
		if err != nil {
			log.Printf("server: avatar session: %v", err)
			s.sendChat(conn, chatResponse{Type: "error", Content: "avatar unavailable, continuing without it"})
		} else {
			avatarSession = session.ID
			s.sendChat(conn, chatResponse{
				Type:      "avatar_session",
				SessionID: session.ID,
				SDP:       session.SDP,
			})
		}
	}
	defer func() {
		if avatarSession != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.avatar.Stop(ctx, avatarSession); err != nil {
				log.Printf("server: stopping avatar session: %v", err)
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendChat(conn, chatResponse{Type: "error", Content: "invalid message format"})
			continue
		}

		switch req.Type {
		case "question":
			s.handleChatQuestion(conn, r, req, avatarSession)
		case "avatar_start":
			if avatarSession == "" {
				s.sendChat(conn, chatResponse{Type: "error", Content: "no avatar session"})
				continue
			}
			if err := s.avatar.Start(r.Context(), avatarSession, req.SDP); err != nil {
				log.Printf("server: avatar start: %v", err)
				s.sendChat(conn, chatResponse{Type: "error", Content: "starting avatar failed"})
			}
		default:
			s.sendChat(conn, chatResponse{Type: "error", Content: "unknown message type: " + req.Type})
		}
	}
}

func (s *Server) handleChatQuestion(conn *websocket.Conn, r *http.Request, req chatRequest, avatarSession string) {
	if req.Content == "" {
		s.sendChat(conn, chatResponse{Type: "error", Content: "content is required"})
		return
	}
	if !s.limiter.Allow(clientIP(r)) {
		s.sendChat(conn, chatResponse{Type: "error", Content: "rate limit exceeded"})
		return
	}

	result, err := s.engine.Query(r.Context(), req.Content, engine.QueryOptions{
		TopK:     req.TopK,
		Language: models.Language(req.Language),
	})
	if err != nil {
		log.Printf("server: chat query: %v", err)
		s.sendChat(conn, chatResponse{Type: "error", Content: "answering failed"})
		return
	}

	sources := result.Sources
	if len(sources) > chatSourceLimit {
		sources = sources[:chatSourceLimit]
	}
	s.sendChat(conn, chatResponse{
		Type:     "answer",
		Content:  result.Answer,
		Sources:  sources,
		Metadata: &result.Metadata,
	})

	if avatarSession != "" {
		if err := s.avatar.Speak(r.Context(), avatarSession, result.Answer); err != nil {
			log.Printf("server: avatar speak: %v", err)
		}
	}
}

func (s *Server) sendChat(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
