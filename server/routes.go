package main

import (
	"net/http"
	"time"
)

func (a *api) routes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/auth/register", a.withRateLimit("auth", 20, time.Minute, a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", a.withRateLimit("auth", 30, time.Minute, a.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/me", a.handleMe)

	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Live updates: topics are list ids passed as repeated ?list= params.
	mux.Handle("GET /api/events", a.eventsHandler())

	// Lists
	mux.HandleFunc("GET /api/lists", a.requireAuth(a.handleMyLists))
	mux.HandleFunc("POST /api/lists", a.requireAuth(a.handleCreateList))
	mux.HandleFunc("GET /api/lists/{id}", a.requireAuth(a.handleGetList))
	mux.HandleFunc("PATCH /api/lists/{id}", a.requireAuth(a.handleUpdateList))
	mux.HandleFunc("DELETE /api/lists/{id}", a.requireAuth(a.handleDeleteList))

	// Items
	mux.HandleFunc("GET /api/lists/{id}/items", a.requireAuth(a.handleItemsByList))
	mux.HandleFunc("POST /api/lists/{id}/items", a.requireAuth(a.handleCreateItem))
	mux.HandleFunc("PATCH /api/items/{id}", a.requireAuth(a.handleUpdateItem))
	mux.HandleFunc("DELETE /api/items/{id}", a.requireAuth(a.handleDeleteItem))
	mux.HandleFunc("POST /api/items/{id}/complete", a.requireAuth(a.handleCompleteItem))
	mux.HandleFunc("POST /api/items/{id}/track", a.requireAuth(a.handleTrackTime))

	// Tags
	mux.HandleFunc("GET /api/lists/{id}/tags", a.requireAuth(a.handleTagsByList))
	mux.HandleFunc("POST /api/lists/{id}/tags", a.requireAuth(a.handleCreateTag))
	mux.HandleFunc("DELETE /api/tags/{id}", a.requireAuth(a.handleDeleteTag))
	mux.HandleFunc("GET /api/items/{id}/tags", a.requireAuth(a.handleItemTags))
	mux.HandleFunc("POST /api/items/{id}/tags", a.requireAuth(a.handleAssignTag))
	mux.HandleFunc("DELETE /api/items/{id}/tags/{tid}", a.requireAuth(a.handleUnassignTag))

	// Members
	mux.HandleFunc("GET /api/lists/{id}/members", a.requireAuth(a.handleListMembers))
	mux.HandleFunc("POST /api/lists/{id}/members", a.requireAuth(a.handleAddMember))
	mux.HandleFunc("DELETE /api/lists/{id}/members/{uid}", a.requireAuth(a.handleRemoveMember))
}
