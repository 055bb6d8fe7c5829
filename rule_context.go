package assoc

import "time"

// RuleContext is what a rule expression sees: the candidate attributes in
// serialized form plus facts about the node being checked.
type RuleContext struct {
	Attrs map[string]any
	Node  NodeFacts
	Now   *time.Time
}

// NodeFacts describes the node a rule runs against.
type NodeFacts struct {
	Type string
	CID  string
	ID   any
	// Relations maps each declared relation key to its cardinality.
	Relations map[string]Cardinality
	// Members counts the nodes held under each relation key. A One relation
	// counts 0 or 1. Members closing a cycle are counted even though the
	// serialized attributes leave them out.
	Members map[string]int
}

// ruleContext captures candidate as the attributes n would hold after the
// pending change.
func (t *Type) ruleContext(n *Node, candidate map[string]any) RuleContext {
	facts := NodeFacts{
		Type:      t.name,
		ID:        candidate[t.idAttr],
		Relations: make(map[string]Cardinality, len(t.relations)),
		Members:   make(map[string]int, len(t.relations)),
	}
	if n != nil {
		facts.CID = n.cid
	}
	for _, rel := range t.relations {
		facts.Relations[rel.Key] = rel.Cardinality
		switch v := candidate[rel.Key].(type) {
		case *Collection:
			facts.Members[rel.Key] = v.Len()
		case *Node:
			if v != nil {
				facts.Members[rel.Key] = 1
			}
		default:
			facts.Members[rel.Key] = 0
		}
	}
	return RuleContext{Attrs: serializeCandidate(n, candidate), Node: facts}
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now != nil {
		return *ctx.Now
	}
	return time.Now()
}

func (ctx RuleContext) typeLabel() string {
	if ctx.Node.Type != "" {
		return ctx.Node.Type
	}
	return "unknown"
}

// Names bound next to the attributes. They shadow attributes of the same
// name.
const (
	bindSelf      = "self"
	bindRelations = "relations"
	bindCounts    = "counts"
	bindNow       = "now"
)

// bindings flattens the context into the variables every engine exposes:
//
//	<attr>       each serialized attribute
//	self         {type, cid, id, isNew}
//	relations    relation key to "one" or "many"
//	counts       relation key to the number of held nodes
//	now          evaluation time
func (ctx RuleContext) bindings() map[string]any {
	out := make(map[string]any, len(ctx.Attrs)+4)
	for key, value := range ctx.Attrs {
		out[key] = value
	}
	relations := make(map[string]any, len(ctx.Node.Relations))
	counts := make(map[string]any, len(ctx.Node.Relations))
	for key, card := range ctx.Node.Relations {
		relations[key] = card.String()
		counts[key] = ctx.Node.Members[key]
	}
	out[bindSelf] = map[string]any{
		"type":  ctx.Node.Type,
		"cid":   ctx.Node.CID,
		"id":    ctx.Node.ID,
		"isNew": ctx.Node.ID == nil,
	}
	out[bindRelations] = relations
	out[bindCounts] = counts
	out[bindNow] = ctx.timestamp()
	return out
}
