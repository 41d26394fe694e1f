// Package transporttest provides an in-memory backend speaking the document QA HTTP contract.
package transporttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"lexadoc/internal/domain"
)

const cookieName = "session_id"

type user struct {
	email    string
	password string
}

// Backend is a fake server with cookie sessions, per-user documents and canned answers.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]user
	sessions map[string]string
	docs     map[string][]domain.Document
	nextID   int64
	nextSess int
	calls    map[string]int

	// Answer produces the response_text for a query. Defaults to echoing the question.
	Answer func(doc domain.Document, question string) string
	// Fail forces the named route ("POST /upload") to answer with the given status.
	Fail map[string]int
}

// NewBackend starts a fake backend. Close it with Close.
func NewBackend() *Backend {
	b := &Backend{
		users:    make(map[string]user),
		sessions: make(map[string]string),
		docs:     make(map[string][]domain.Document),
		calls:    make(map[string]int),
		Fail:     make(map[string]int),
		Answer: func(doc domain.Document, question string) string {
			return fmt.Sprintf("%s: %s", doc.FileName, question)
		},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.route))
	return b
}

// AddUser seeds an account.
func (b *Backend) AddUser(username, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = user{email: email, password: password}
}

// Calls returns how many times the route ("GET /me") was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls returns the number of requests served.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// SessionCount returns the number of live server-side sessions.
func (b *Backend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// SetFail forces a route to fail with status; zero clears it.
func (b *Backend) SetFail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.Fail, route)
		return
	}
	b.Fail[route] = status
}

func (b *Backend) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	key := r.Method + " " + path
	if strings.HasPrefix(path, "/documents/") && r.Method == http.MethodDelete {
		key = "DELETE /documents/{id}"
	}

	b.mu.Lock()
	b.calls[key]++
	status, failing := b.Fail[key]
	b.mu.Unlock()
	if failing {
		http.Error(w, `{"detail":"forced failure"}`, status)
		return
	}

	switch key {
	case "POST /register":
		b.register(w, r)
	case "POST /login":
		b.login(w, r)
	case "POST /logout":
		b.logout(w, r)
	case "GET /me":
		b.withUser(w, r, func(name string) { b.me(w, name) })
	case "GET /documents":
		b.withUser(w, r, func(name string) { b.list(w, name) })
	case "POST /upload":
		b.withUser(w, r, func(name string) { b.upload(w, r, name) })
	case "DELETE /documents/{id}":
		b.withUser(w, r, func(name string) { b.delete(w, r, name) })
	case "POST /query":
		b.withUser(w, r, func(name string) { b.query(w, r, name) })
	default:
		http.NotFound(w, r)
	}
}

func (b *Backend) withUser(w http.ResponseWriter, r *http.Request, next func(name string)) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}
	b.mu.Lock()
	name, ok := b.sessions[c.Value]
	b.mu.Unlock()
	if !ok {
		http.Error(w, `{"detail":"Invalid session"}`, http.StatusUnauthorized)
		return
	}
	next(name)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Username]; exists {
		http.Error(w, `{"detail":"Username already registered"}`, http.StatusBadRequest)
		return
	}
	b.users[req.Username] = user{email: req.Email, password: req.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username, "email": req.Email})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	b.mu.Lock()
	u, ok := b.users[req.Username]
	if !ok || u.password != req.Password {
		b.mu.Unlock()
		http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusBadRequest)
		return
	}
	b.nextSess++
	sid := "sess-" + strconv.Itoa(b.nextSess)
	b.sessions[sid] = req.Username
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: sid, HttpOnly: true, Path: "/", MaxAge: 3600})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(cookieName); err == nil {
		b.mu.Lock()
		delete(b.sessions, c.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (b *Backend) me(w http.ResponseWriter, name string) {
	b.mu.Lock()
	u := b.users[name]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.Profile{Username: name, Email: u.email})
}

func (b *Backend) list(w http.ResponseWriter, name string) {
	b.mu.Lock()
	docs := append([]domain.Document{}, b.docs[name]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, docs)
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request, name string) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer f.Close()
	_, _ = io.Copy(io.Discard, f)

	b.mu.Lock()
	b.nextID++
	doc := domain.Document{
		ID:        b.nextID,
		FileName:  hdr.Filename,
		FileType:  hdr.Header.Get("Content-Type"),
		CreatedAt: domain.Timestamp{Time: time.Now().UTC()},
	}
	b.docs[name] = append(b.docs[name], doc)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, doc)
}

func (b *Backend) delete(w http.ResponseWriter, r *http.Request, name string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/documents/"), 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := b.docs[name]
	for i, d := range docs {
		if d.ID == id {
			b.docs[name] = append(docs[:i:i], docs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
			return
		}
	}
	http.Error(w, `{"detail":"Document not found"}`, http.StatusNotFound)
}

func (b *Backend) query(w http.ResponseWriter, r *http.Request, name string) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	b.mu.Lock()
	var found *domain.Document
	for _, d := range b.docs[name] {
		if d.ID == req.DocumentID {
			d := d
			found = &d
			break
		}
	}
	answer := b.Answer
	b.mu.Unlock()
	if found == nil {
		http.Error(w, `{"detail":"Document not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, domain.QueryResponse{
		ResponseText: answer(*found, req.QueryText),
		DocumentID:   found.ID,
		CreatedAt:    domain.Timestamp{Time: time.Now().UTC()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
