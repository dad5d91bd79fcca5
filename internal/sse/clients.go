// Package sse provides Server-Sent Events client management for post change events.
package sse

import (
	"sync"

	"github.com/debemdeboas/postboard/internal/model"
)

// Client receives messages for one post, or for every post when PostID is empty.
type Client struct {
	Msg    chan string
	PostID model.PostID
}

func NewClient(postID model.PostID) *Client {
	return &Client{
		Msg:    make(chan string, 8),
		PostID: postID,
	}
}

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *Clients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast never blocks; slow clients miss messages.
func (s *Clients) Broadcast(postID model.PostID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.PostID == "" || client.PostID == postID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}
