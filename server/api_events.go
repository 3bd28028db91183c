package main

import (
	"net/http"
	"strconv"

	"listo/sse"
)

// eventsHandler builds the subscription endpoint. The sse package owns
// the stream lifecycle; this wiring supplies the two collaborators it
// needs: session authentication and list-membership authorization.
func (a *api) eventsHandler() http.Handler {
	return &sse.Handler{
		Registry: sse.Default(),
		Log:      a.log,
		Authenticate: func(r *http.Request) (string, error) {
			u, err := a.currentUser(r)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(u.ID, 10), nil
		},
		Authorize: func(r *http.Request, identity, topic string) bool {
			uid, err := parseID(identity)
			if err != nil {
				return false
			}
			listID, err := parseID(topic)
			if err != nil {
				return false
			}
			ok, err := a.store.IsListMember(r.Context(), uid, listID)
			if err != nil {
				a.log.Error("events authorize", "err", err)
				return false
			}
			return ok
		},
	}
}
