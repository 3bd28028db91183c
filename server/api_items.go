package main

import (
	"errors"
	"net/http"
	"time"
)

// requireItemAccess resolves the item's list and enforces membership.
func (a *api) requireItemAccess(r *http.Request, itemID int64) (listID int64, status int, msg string) {
	listID, err := a.store.ListIDByItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, 404, "not found"
		}
		a.log.Error("resolve item list", "err", err)
		return 0, 500, "internal error"
	}
	if _, status, msg := a.requireListMember(r, listID); status != 0 {
		return 0, status, msg
	}
	return listID, 0, ""
}

func (a *api) handleItemsByList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListMember(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	items, err := a.store.ItemsByList(r.Context(), id)
	if err != nil {
		a.log.Error("items by list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListMember(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	var req struct {
		Title string  `json:"title"`
		Note  string  `json:"note"`
		DueAt *string `json:"due_at"`
	}
	if err := readJSON(w, r, &req); err != nil || len(req.Title) == 0 {
		writeError(w, 400, "invalid payload")
		return
	}
	var due *time.Time
	if req.DueAt != nil && *req.DueAt != "" {
		l, err := a.store.GetList(r.Context(), id)
		if err != nil {
			a.log.Error("get list", "err", err)
			writeError(w, 500, "internal error")
			return
		}
		if !l.HasDueDates {
			writeError(w, 400, "due dates are not enabled for this list")
			return
		}
		t, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			writeError(w, 400, "bad due_at")
			return
		}
		due = &t
	}
	it, err := a.store.CreateItem(r.Context(), id, req.Title, req.Note, due)
	if err != nil {
		a.log.Error("create item", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 201, it)
}

func (a *api) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	listID, status, msg := a.requireItemAccess(r, id)
	if status != 0 {
		writeError(w, status, msg)
		return
	}
	var req struct {
		Title *string `json:"title"`
		Note  *string `json:"note"`
		Pos   *int64  `json:"pos"`
		DueAt *string `json:"due_at"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	var due *time.Time
	if req.DueAt != nil && *req.DueAt != "" {
		l, err := a.store.GetList(r.Context(), listID)
		if err != nil {
			a.log.Error("get list", "err", err)
			writeError(w, 500, "internal error")
			return
		}
		if !l.HasDueDates {
			writeError(w, 400, "due dates are not enabled for this list")
			return
		}
		t, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			writeError(w, 400, "bad due_at")
			return
		}
		due = &t
	}
	if err := a.store.UpdateItem(r.Context(), id, req.Title, req.Note, req.Pos, due); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("update item", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleCompleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireItemAccess(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	var req struct {
		Done bool `json:"done"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	if err := a.store.SetItemCompleted(r.Context(), id, req.Done); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("complete item", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

// POST /api/items/{id}/track {seconds}: add time against an item. Only
// valid on lists with time tracking enabled.
func (a *api) handleTrackTime(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	listID, status, msg := a.requireItemAccess(r, id)
	if status != 0 {
		writeError(w, status, msg)
		return
	}
	var req struct {
		Seconds int64 `json:"seconds"`
	}
	if err := readJSON(w, r, &req); err != nil || req.Seconds <= 0 {
		writeError(w, 400, "invalid payload")
		return
	}
	l, err := a.store.GetList(r.Context(), listID)
	if err != nil {
		a.log.Error("get list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if !l.HasTimeTracking {
		writeError(w, 400, "time tracking is not enabled for this list")
		return
	}
	if err := a.store.AddTrackedTime(r.Context(), id, req.Seconds); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("track time", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireItemAccess(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	if err := a.store.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("delete item", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
