package main

import (
	"errors"
	"net/http"
	"strings"
)

func (a *api) handleMyLists(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	items, err := a.store.ListsForUser(r.Context(), u.ID)
	if err != nil {
		a.log.Error("lists for user", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateList(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	l, err := a.store.CreateList(r.Context(), u.ID, strings.TrimSpace(req.Name))
	if err != nil {
		a.log.Error("create list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 201, l)
}

func (a *api) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListMember(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	l, err := a.store.GetList(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("get list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, l)
}

func (a *api) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListOwner(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	if err := a.store.DeleteList(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("delete list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

// PATCH /api/lists/{id}: list settings. Each field that changes emits its
// own change-event, and only after the corresponding write has committed.
func (a *api) handleUpdateList(w http.ResponseWriter, r *http.Request) {
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
		Name            *string     `json:"name"`
		Color           *NamedColor `json:"color"`
		HasTimeTracking *bool       `json:"has_time_tracking"`
		HasDueDates     *bool       `json:"has_due_dates"`
		IsAutoOrdered   *bool       `json:"is_auto_ordered"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, 400, "name cannot be empty")
		return
	}
	if req.Color != nil && !req.Color.Valid() {
		writeError(w, 400, "unknown color")
		return
	}

	var pending []ChangeEvent
	apply := func(write func() error, ev ChangeEvent) bool {
		if err := write(); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, 404, "not found")
			} else {
				a.log.Error("update list", "err", err)
				writeError(w, 500, "internal error")
			}
			return false
		}
		pending = append(pending, ev)
		return true
	}

	ctx := r.Context()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !apply(func() error { return a.store.SetListName(ctx, id, name) }, SetListName(name)) {
			return
		}
	}
	if req.Color != nil {
		if !apply(func() error { return a.store.SetListColor(ctx, id, *req.Color) }, SetListColor(*req.Color)) {
			return
		}
	}
	if req.HasTimeTracking != nil {
		if !apply(func() error { return a.store.SetHasTimeTracking(ctx, id, *req.HasTimeTracking) }, SetHasTimeTracking(*req.HasTimeTracking)) {
			return
		}
	}
	if req.HasDueDates != nil {
		if !apply(func() error { return a.store.SetHasDueDates(ctx, id, *req.HasDueDates) }, SetHasDueDates(*req.HasDueDates)) {
			return
		}
	}
	if req.IsAutoOrdered != nil {
		if !apply(func() error { return a.store.SetIsAutoOrdered(ctx, id, *req.IsAutoOrdered) }, SetIsAutoOrdered(*req.IsAutoOrdered)) {
			return
		}
	}
	writeJSON(w, 200, map[string]any{"ok": true})
	// All writes above are durable; now accelerate everyone's UI.
	for _, ev := range pending {
		a.events.Broadcast(listTopic(id), ev)
	}
}
