package main

import (
	"errors"
	"net/http"
	"strings"
)

func (a *api) handleTagsByList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireListMember(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	tags, err := a.store.TagsByList(r.Context(), id)
	if err != nil {
		a.log.Error("tags by list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, tags)
}

func (a *api) handleCreateTag(w http.ResponseWriter, r *http.Request) {
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
		Name  string     `json:"name"`
		Color NamedColor `json:"color"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	if req.Color == "" {
		req.Color = ColorGray
	}
	if !req.Color.Valid() {
		writeError(w, 400, "unknown color")
		return
	}
	t, err := a.store.CreateTag(r.Context(), id, strings.TrimSpace(req.Name), req.Color)
	if err != nil {
		a.log.Error("create tag", "err", err)
		writeError(w, 400, "cannot create tag")
		return
	}
	writeJSON(w, 201, t)
}

func (a *api) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	listID, err := a.store.ListIDByTag(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("resolve tag list", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if _, status, msg := a.requireListMember(r, listID); status != 0 {
		writeError(w, status, msg)
		return
	}
	if err := a.store.DeleteTag(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("delete tag", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleItemTags(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireItemAccess(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	tags, err := a.store.TagsByItem(r.Context(), id)
	if err != nil {
		a.log.Error("tags by item", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, tags)
}

func (a *api) handleAssignTag(w http.ResponseWriter, r *http.Request) {
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
		TagID int64 `json:"tag_id"`
	}
	if err := readJSON(w, r, &req); err != nil || req.TagID == 0 {
		writeError(w, 400, "invalid payload")
		return
	}
	if err := a.store.AssignTag(r.Context(), id, req.TagID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("assign tag", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleUnassignTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	tid, err := parseID(r.PathValue("tid"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if _, status, msg := a.requireItemAccess(r, id); status != 0 {
		writeError(w, status, msg)
		return
	}
	if err := a.store.UnassignTag(r.Context(), id, tid); err != nil {
		a.log.Error("unassign tag", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
