package main

import (
	"errors"
	"net/http"
	"strings"
)

func (a *api) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListMember(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	members, err := a.store.ListMembers(r.Context(), id)
	if err != nil {
		a.log.Error("list members", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, members)
}

// POST /api/lists/{id}/members {email}: owner invites a user by email.
func (a *api) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListOwner(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	uid, err := a.store.UserIDByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("user by email", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if err := a.store.AddListMember(r.Context(), id, uid, RoleMember); err != nil {
		a.log.Error("add member", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	uid, err := parseID(r.PathValue("uid"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	u, status, msg := a.requireListOwner(r, id)
	if status != 0 {
		writeError(w, status, msg)
		return
	}
	if uid == u.ID {
		writeError(w, 400, "owner cannot remove themselves")
		return
	}
	if err := a.store.RemoveListMember(r.Context(), id, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("remove member", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
