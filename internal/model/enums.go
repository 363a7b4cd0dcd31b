package model

// InteractionTypes is the fixed set of allowed interaction types.
var InteractionTypes = []string{
	"Meeting", "Call", "Email", "Update", "Training", "Review",
	"Presentation", "Conference", "Workshop", "Other",
}

func IsValidInteractionType(t string) bool {
	for _, v := range InteractionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// SortableInteractionColumns is the allow-list of columns a client may
// sort interaction listings by. Anything else falls back to created_at.
var SortableInteractionColumns = map[string]string{
	"title":          "title",
	"type":           "type",
	"lead":           "lead",
	"start_datetime": "start_datetime",
	"end_datetime":   "end_datetime",
	"location":       "location",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}
