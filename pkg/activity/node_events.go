package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Verbs emitted for node persistence.
const (
	VerbNodeCreated = "node.created"
	VerbNodeUpdated = "node.updated"
	VerbNodeDeleted = "node.deleted"
	VerbNodeFetched = "node.fetched"
)

// NodeEventInput describes a node persistence occurrence.
type NodeEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	Type           string
	ID             any
	CID            string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	// Changed lists the attribute keys modified by the operation.
	Changed    []string
	Duration   time.Duration
	OccurredAt time.Time
}

// BuildNodeCreatedEvent constructs the event for a node saved for the first time.
func BuildNodeCreatedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeCreated, input)
}

// BuildNodeUpdatedEvent constructs the event for a node saved again.
func BuildNodeUpdatedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeUpdated, input)
}

// BuildNodeDeletedEvent constructs the event for a destroyed node.
func BuildNodeDeletedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeDeleted, input)
}

// BuildNodeFetchedEvent constructs the event for a node refreshed from its store.
func BuildNodeFetchedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeFetched, input)
}

func buildNodeEvent(verb string, input NodeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.CID != "" {
		metadata = ensureMetadata(metadata)
		metadata["cid"] = input.CID
	}
	if len(input.Changed) > 0 {
		changed := append([]string{}, input.Changed...)
		sort.Strings(changed)
		metadata = ensureMetadata(metadata)
		metadata["changed"] = changed
	}
	if input.Duration > 0 {
		metadata = ensureMetadata(metadata)
		metadata["duration_ms"] = input.Duration.Milliseconds()
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectType := strings.TrimSpace(input.Type)
	if objectType == "" {
		objectType = "node"
	}
	objectID := ""
	if input.ID != nil {
		objectID = strings.TrimSpace(fmt.Sprint(input.ID))
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.CID)
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
