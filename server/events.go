package main

import "strconv"

// ChangeEvent is the wire payload pushed to subscribers after a list
// mutation commits. Exactly one value field is set per event; the Type
// discriminator tells client-side reducers which one. The transport is
// payload-agnostic, so extending this union only touches this file and
// the reducers.
type ChangeEvent struct {
	Type            string      `json:"type"`
	Name            *string     `json:"name,omitempty"`
	Color           *NamedColor `json:"color,omitempty"`
	HasTimeTracking *bool       `json:"hasTimeTracking,omitempty"`
	HasDueDates     *bool       `json:"hasDueDates,omitempty"`
	IsAutoOrdered   *bool       `json:"isAutoOrdered,omitempty"`
}

func SetListName(name string) ChangeEvent {
	return ChangeEvent{Type: "SetListName", Name: &name}
}

func SetListColor(color NamedColor) ChangeEvent {
	return ChangeEvent{Type: "SetListColor", Color: &color}
}

func SetHasTimeTracking(v bool) ChangeEvent {
	return ChangeEvent{Type: "SetHasTimeTracking", HasTimeTracking: &v}
}

func SetHasDueDates(v bool) ChangeEvent {
	return ChangeEvent{Type: "SetHasDueDates", HasDueDates: &v}
}

func SetIsAutoOrdered(v bool) ChangeEvent {
	return ChangeEvent{Type: "SetIsAutoOrdered", IsAutoOrdered: &v}
}

// listTopic is the broadcast topic for one list; subscribers pass the
// same value in the events endpoint's repeated "list" parameter.
func listTopic(listID int64) string { return strconv.FormatInt(listID, 10) }
